package middleware

import (
	"context"
	"net"
	"net/http"
	"regexp"
)

// RedirectConfig implements redirectScheme and redirectRegex (spec.md §4.3
// "redirect.go").
type RedirectConfig struct {
	Scheme      string // redirectScheme target, e.g. "https"
	Port        string // optional port to append
	Regex       string
	Replacement string
	Permanent   bool
}

type Redirect struct {
	cfg   RedirectConfig
	regex *regexp.Regexp
}

func NewRedirect(cfg RedirectConfig) *Redirect {
	r := &Redirect{cfg: cfg}
	if cfg.Regex != "" {
		r.regex, _ = regexp.Compile(cfg.Regex)
	}
	return r
}

func (m *Redirect) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	code := http.StatusFound
	if m.cfg.Permanent {
		code = http.StatusMovedPermanently
	}

	if m.regex != nil {
		current := r.URL.String()
		if m.regex.MatchString(current) {
			target := m.regex.ReplaceAllString(current, m.cfg.Replacement)
			http.Redirect(w, r, target, code)
			return nil
		}
		return next(ctx, w, r)
	}

	if m.cfg.Scheme != "" {
		host := r.Host
		if m.cfg.Port != "" {
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h + ":" + m.cfg.Port
			}
		}
		target := m.cfg.Scheme + "://" + host + r.URL.RequestURI()
		http.Redirect(w, r, target, code)
		return nil
	}
	return next(ctx, w, r)
}
