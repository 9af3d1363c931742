package rule

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// Predicate is the compiled, evaluation-ready form of an expression: a pure
// function of a request descriptor plus its complexity weight. It satisfies
// model.RuleMatcher.
type Predicate struct {
	eval   func(req *model.Request) bool
	weight int
}

func (p *Predicate) Match(req *model.Request) bool { return p.eval(req) }
func (p *Predicate) Weight() int                    { return p.weight }

// Compile parses expr, validates every atom against allow, and lowers it
// into a Predicate. Regexes are compiled once here and shared read-only by
// every subsequent evaluation.
func Compile(expr string, allow AllowSet) (*Predicate, error) {
	ast, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	eval, weight, err := lower(ast, allow)
	if err != nil {
		return nil, err
	}
	return &Predicate{eval: eval, weight: weight}, nil
}

func lower(n Node, allow AllowSet) (func(*model.Request) bool, int, error) {
	switch t := n.(type) {
	case Star:
		return func(*model.Request) bool { return true }, 0, nil
	case Not:
		f, w, err := lower(t.X, allow)
		if err != nil {
			return nil, 0, err
		}
		return func(r *model.Request) bool { return !f(r) }, w, nil
	case And:
		lf, lw, err := lower(t.L, allow)
		if err != nil {
			return nil, 0, err
		}
		rf, rw, err := lower(t.R, allow)
		if err != nil {
			return nil, 0, err
		}
		return func(r *model.Request) bool { return lf(r) && rf(r) }, lw + rw, nil
	case Or:
		lf, lw, err := lower(t.L, allow)
		if err != nil {
			return nil, 0, err
		}
		rf, rw, err := lower(t.R, allow)
		if err != nil {
			return nil, 0, err
		}
		return func(r *model.Request) bool { return lf(r) || rf(r) }, lw + rw, nil
	case Atom:
		return lowerAtom(t, allow)
	default:
		panic("rule: unreachable node type")
	}
}

func lowerAtom(a Atom, allow AllowSet) (func(*model.Request) bool, int, error) {
	if err := allow.check(a.Kind); err != nil {
		return nil, 0, err
	}
	switch a.Kind {
	case KindHost:
		hosts := make([]string, len(a.Args))
		for i, h := range a.Args {
			hosts[i] = strings.ToLower(h)
		}
		return func(r *model.Request) bool {
			h := strings.ToLower(hostOnly(r.Host))
			for _, want := range hosts {
				if h == want {
					return true
				}
			}
			return false
		}, len(a.Args) * weightString, nil

	case KindHostSNI:
		hosts := make([]string, len(a.Args))
		for i, h := range a.Args {
			hosts[i] = strings.ToLower(h)
		}
		return func(r *model.Request) bool {
			s := strings.ToLower(r.SNI)
			for _, want := range hosts {
				if want == "*" || s == want {
					return true
				}
			}
			return false
		}, len(a.Args) * weightString, nil

	case KindHostRegexp:
		res, err := compileAll(a.Args)
		if err != nil {
			return nil, 0, err
		}
		return func(r *model.Request) bool {
			h := hostOnly(r.Host)
			for _, re := range res {
				if re.MatchString(h) {
					return true
				}
			}
			return false
		}, len(a.Args) * weightRegex, nil

	case KindPath:
		paths := append([]string(nil), a.Args...)
		return func(r *model.Request) bool {
			for _, want := range paths {
				if r.Path == want {
					return true
				}
			}
			return false
		}, len(a.Args) * weightString, nil

	case KindPathPrefix:
		prefixes := append([]string(nil), a.Args...)
		return func(r *model.Request) bool {
			for _, p := range prefixes {
				if pathPrefixMatch(r.Path, p) {
					return true
				}
			}
			return false
		}, len(a.Args) * weightString, nil

	case KindPathRegexp:
		res, err := compileAll(a.Args)
		if err != nil {
			return nil, 0, err
		}
		return func(r *model.Request) bool {
			for _, re := range res {
				if re.MatchString(r.Path) {
					return true
				}
			}
			return false
		}, len(a.Args) * weightRegex, nil

	case KindMethod:
		methods := make([]string, len(a.Args))
		for i, m := range a.Args {
			methods[i] = strings.ToUpper(m)
		}
		return func(r *model.Request) bool {
			m := strings.ToUpper(r.Method)
			for _, want := range methods {
				if m == want {
					return true
				}
			}
			return false
		}, len(a.Args) * weightString, nil

	case KindHeader:
		if len(a.Args) < 2 {
			return nil, 0, errHeaderArgs
		}
		name, want := a.Args[0], a.Args[1]
		return func(r *model.Request) bool {
			for _, v := range headerValues(r, name) {
				if v == want {
					return true
				}
			}
			return false
		}, weightString, nil

	case KindHeaderRegexp:
		if len(a.Args) < 2 {
			return nil, 0, errHeaderArgs
		}
		name := a.Args[0]
		re, err := regexp.Compile(a.Args[1])
		if err != nil {
			return nil, 0, err
		}
		return func(r *model.Request) bool {
			for _, v := range headerValues(r, name) {
				if re.MatchString(v) {
					return true
				}
			}
			return false
		}, weightRegex, nil

	case KindQuery:
		if len(a.Args) < 1 {
			return nil, 0, errHeaderArgs
		}
		key := a.Args[0]
		var want string
		hasWant := len(a.Args) >= 2
		if hasWant {
			want = a.Args[1]
		}
		return func(r *model.Request) bool {
			vals, err := url.ParseQuery(r.RawQuery)
			if err != nil {
				return false
			}
			decoded := vals[key]
			if !hasWant {
				return len(decoded) > 0
			}
			for _, v := range decoded {
				if v == want {
					return true
				}
			}
			return false
		}, weightString, nil

	case KindClientIP:
		cidrs := append([]string(nil), a.Args...)
		return func(r *model.Request) bool {
			return clientIPMatches(r.ClientIP, cidrs)
		}, len(a.Args) * weightString, nil

	default:
		panic("rule: unreachable atom kind")
	}
}

var errHeaderArgs = &compileError{"rule: Header/HeaderRegexp/Query require at least the arguments documented in spec.md"}

type compileError struct{ msg string }

func (e *compileError) Error() string { return e.msg }

func compileAll(pats []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, len(pats))
	for i, p := range pats {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out[i] = re
	}
	return out, nil
}

func headerValues(r *model.Request, name string) []string {
	if r.Headers == nil {
		return nil
	}
	// headers are case-insensitive; callers are expected to store them
	// canonicalized (textproto.CanonicalMIMEHeaderKey), as net/http does.
	return r.Headers[name]
}

func hostOnly(h string) string {
	if i := strings.IndexByte(h, ':'); i >= 0 {
		return h[:i]
	}
	return h
}

// pathPrefixMatch treats prefix as a path-segment prefix: "/api" matches
// "/api", "/api/", "/api/v1" but not "/apiary".
func pathPrefixMatch(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}
