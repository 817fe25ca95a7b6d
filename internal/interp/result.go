package interp

import (
	"strings"

	"rubyscope/internal/ast"
	"rubyscope/internal/definition"
)

// Result is the published outcome of a run: the frozen definition graph and
// the node association map. It is safe to share across goroutines; every
// reachable definition is frozen before a Result is handed out.
type Result struct {
	root         *definition.Definition
	associations map[*ast.Node]*definition.Definition
}

// Root returns the root scope of the frozen graph.
func (r *Result) Root() *definition.Definition {
	return r.root
}

// Association returns the definition a syntax node resolved to, if any.
func (r *Result) Association(node *ast.Node) (*definition.Definition, bool) {
	def, ok := r.associations[node]
	return def, ok
}

// LookupConstant resolves a qualified constant path ("Foo::Bar") from the
// root scope.
func (r *Result) LookupConstant(path string) (*definition.Definition, bool) {
	current := r.root
	for _, seg := range strings.Split(path, "::") {
		next, ok := current.LookupConstant(seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// EachAssociation visits every node association. Iteration order is
// unspecified; callers needing determinism sort on node locations.
func (r *Result) EachAssociation(fn func(node *ast.Node, def *definition.Definition)) {
	for node, def := range r.associations {
		fn(node, def)
	}
}
