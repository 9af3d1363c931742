// Package rule implements the gateway-compatible rule expression grammar:
// atoms (Host, HostRegexp, Path, PathPrefix, PathRegexp, Header,
// HeaderRegexp, Method, Query, ClientIP, HostSNI) combined with !, &&, ||
// and parens. Parse produces an AST; Compile lowers it once into a pure
// predicate closure plus a complexity-derived weight used as a router's
// default priority.
package rule

import "fmt"

// Kind identifies an atom function.
type Kind string

const (
	KindHost        Kind = "Host"
	KindHostRegexp  Kind = "HostRegexp"
	KindHostSNI     Kind = "HostSNI"
	KindPath        Kind = "Path"
	KindPathPrefix  Kind = "PathPrefix"
	KindPathRegexp  Kind = "PathRegexp"
	KindHeader      Kind = "Header"
	KindHeaderRegexp Kind = "HeaderRegexp"
	KindMethod      Kind = "Method"
	KindQuery       Kind = "Query"
	KindClientIP    Kind = "ClientIP"
)

// stringWeight vs regexWeight, per spec.md §4.1.
const (
	weightString = 1
	weightRegex  = 4
)

func (k Kind) isRegex() bool {
	switch k {
	case KindHostRegexp, KindPathRegexp, KindHeaderRegexp:
		return true
	default:
		return false
	}
}

// Node is one element of the parsed expression tree.
type Node interface {
	node()
}

// Atom is a leaf predicate call, e.g. Host(`example.com`) or
// Header(`X-Foo`, `bar`).
type Atom struct {
	Kind Kind
	Args []string
}

func (Atom) node() {}

// Not negates its operand (highest precedence).
type Not struct{ X Node }

func (Not) node() {}

// And is a conjunction (binds tighter than Or).
type And struct{ L, R Node }

func (And) node() {}

// Or is a disjunction (lowest precedence).
type Or struct{ L, R Node }

func (Or) node() {}

// Star matches every request; used for bare "*" rules on TCP/UDP routers.
type Star struct{}

func (Star) node() {}

// allowed restricts which atom kinds are legal for a given router class.
type AllowSet map[Kind]bool

var AllowL7 = AllowSet{
	KindHost: true, KindHostRegexp: true, KindPath: true, KindPathPrefix: true,
	KindPathRegexp: true, KindHeader: true, KindHeaderRegexp: true,
	KindMethod: true, KindQuery: true, KindClientIP: true,
}

var AllowTCP = AllowSet{
	KindHostSNI: true, KindClientIP: true,
}

var AllowUDP = AllowSet{
	KindClientIP: true,
}

func (a AllowSet) check(k Kind) error {
	if !a[k] {
		return fmt.Errorf("rule: atom %s not permitted for this router class", k)
	}
	return nil
}
