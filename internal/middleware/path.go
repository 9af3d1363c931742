package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// PathConfig implements the five path-rewrite variants of spec.md §4.3
// ("path.go"): exactly one should be set per middleware instance.
type PathConfig struct {
	StripPrefix       string
	AddPrefix         string
	ReplacePath       string
	ReplacePathRegex  string // "pattern replacement", space-separated
	StripPrefixRegex  string
}

type Path struct {
	cfg              PathConfig
	replaceRegex     *regexp.Regexp
	replacement      string
	stripRegex       *regexp.Regexp
}

func NewPath(cfg PathConfig) *Path {
	p := &Path{cfg: cfg}
	if cfg.ReplacePathRegex != "" {
		if pat, repl, ok := strings.Cut(cfg.ReplacePathRegex, " "); ok {
			if re, err := regexp.Compile(pat); err == nil {
				p.replaceRegex = re
				p.replacement = repl
			}
		}
	}
	if cfg.StripPrefixRegex != "" {
		if re, err := regexp.Compile(cfg.StripPrefixRegex); err == nil {
			p.stripRegex = re
		}
	}
	return p
}

func (m *Path) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	switch {
	case m.cfg.StripPrefix != "":
		r.Header.Set("X-Forwarded-Prefix", m.cfg.StripPrefix)
		r.URL.Path = "/" + strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, m.cfg.StripPrefix), "/")
	case m.cfg.AddPrefix != "":
		r.URL.Path = m.cfg.AddPrefix + r.URL.Path
	case m.cfg.ReplacePath != "":
		r.Header.Set("X-Replaced-Path", r.URL.Path)
		r.URL.Path = m.cfg.ReplacePath
	case m.replaceRegex != nil:
		r.URL.Path = m.replaceRegex.ReplaceAllString(r.URL.Path, m.replacement)
	case m.stripRegex != nil:
		r.URL.Path = m.stripRegex.ReplaceAllString(r.URL.Path, "")
		if !strings.HasPrefix(r.URL.Path, "/") {
			r.URL.Path = "/" + r.URL.Path
		}
	}
	return next(ctx, w, r)
}
