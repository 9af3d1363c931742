package middleware

// ExpandChain inlines a "chain" middleware's member list into the flat
// middleware-name sequence a router resolves, recursively expanding any
// chain members that are themselves chains. It does not exist as a runtime
// Middleware: spec.md §4.3 calls for the chain to be flattened once, at
// snapshot-build time in internal/reload, rather than adding a layer of
// indirection to every request.
func ExpandChain(name string, chains map[string][]string, seen map[string]bool) []string {
	members, ok := chains[name]
	if !ok {
		return []string{name}
	}
	if seen[name] {
		return nil // cyclic chain reference; internal/reload validation should reject this earlier
	}
	seen[name] = true
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, ExpandChain(m, chains, seen)...)
	}
	return out
}
