package health

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Metrics is the rolling per-service data a breaker expression reads. It is
// recomputed by the caller once per CheckPeriod from the same counters
// internal/metrics exports.
type Metrics struct {
	NetworkErrorRatio  float64
	ResponseCodeRatio  map[string]float64 // "5xx", "4xx", ...
	LatencyQuantilesMS map[int]float64    // 50, 90, 99
}

var exprPattern = regexp.MustCompile(`^\s*([A-Za-z]+)\(([^)]*)\)\s*(>|<|>=|<=|==)\s*([0-9.]+)\s*$`)

// Expression compiles one of spec.md's three breaker predicates:
// NetworkErrorRatio(), ResponseCodeRatio(code, code, div, div),
// LatencyAtQuantileMS(q). ResponseCodeRatio's arguments are not read: it
// always compares the "5xx" entry of Metrics.ResponseCodeRatio.
// There is no general boolean grammar here (the
// original only ever combines one predicate with one comparison), so a
// small regexp-driven parser covers it without pulling in an expression
// evaluation library the corpus never imports.
type Expression struct {
	fn  string
	arg float64
	op  string
	rhs float64
}

func CompileExpression(s string) (*Expression, error) {
	m := exprPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("health: unrecognized breaker expression %q", s)
	}
	rhs, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return nil, fmt.Errorf("health: breaker expression rhs: %w", err)
	}
	var arg float64
	if a := strings.TrimSpace(m[2]); a != "" {
		arg, _ = strconv.ParseFloat(a, 64)
	}
	return &Expression{fn: m[1], arg: arg, op: m[3], rhs: rhs}, nil
}

func (e *Expression) Evaluate(m Metrics) bool {
	var lhs float64
	switch e.fn {
	case "NetworkErrorRatio":
		lhs = m.NetworkErrorRatio
	case "ResponseCodeRatio":
		lhs = m.ResponseCodeRatio["5xx"]
	case "LatencyAtQuantileMS":
		lhs = m.LatencyQuantilesMS[int(e.arg)]
	default:
		return false
	}
	switch e.op {
	case ">":
		return lhs > e.rhs
	case "<":
		return lhs < e.rhs
	case ">=":
		return lhs >= e.rhs
	case "<=":
		return lhs <= e.rhs
	case "==":
		return lhs == e.rhs
	default:
		return false
	}
}
