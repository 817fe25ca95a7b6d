package resolver

import (
	"log/slog"
	"strings"

	"rubyscope/internal/ast"
	"rubyscope/internal/definition"
	"rubyscope/internal/observability"
)

// Resolver walks constant path nodes (A::B::C) against the scope chain,
// falling back to the definition database per segment. Resolution never
// fails hard: an unresolvable path is an ok=false result and the caller
// degrades (skips the assignment, defaults the superclass, and so on).
type Resolver struct {
	loader *Loader
	log    *slog.Logger
}

func New(loader *Loader, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{loader: loader, log: log}
}

// Resolve resolves a constant read node against the scope stack (innermost
// scope last). The first segment is searched through every open scope; the
// remaining segments descend through the found definition only.
func (r *Resolver) Resolve(node *ast.Node, scopes []*definition.Definition) (*definition.Definition, bool) {
	segs := ast.ConstPath(node)
	if len(segs) == 0 {
		return nil, false
	}

	current, ok := r.resolveFirst(segs[0], scopes)
	if !ok {
		r.miss(segs, 0)
		return nil, false
	}

	for i := 1; i < len(segs); i++ {
		next, found := current.LookupConstant(segs[i])
		if !found {
			// The database keys fully qualified names; try the path so far.
			fq := strings.Join(segs[:i+1], "::")
			if _, loaded := r.loader.Materialize(fq); loaded {
				next, found = current.LookupConstant(segs[i])
			}
		}
		if !found {
			r.miss(segs, i)
			return nil, false
		}
		current = next
	}

	return current, true
}

func (r *Resolver) resolveFirst(name string, scopes []*definition.Definition) (*definition.Definition, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if def, ok := scopes[i].LookupConstant(name); ok {
			return def, true
		}
	}
	if def, ok := r.loader.Materialize(name); ok {
		return def, true
	}
	return nil, false
}

func (r *Resolver) miss(segs []string, at int) {
	observability.LookupMisses.Inc()
	r.log.Debug("unresolved constant",
		"constant", strings.Join(segs, "::"),
		"segment", segs[at])
}

// Preload scans a whole tree for constant references and eagerly
// materializes every database match, so forward references and reopened
// stdlib classes resolve during the single main walk.
func (r *Resolver) Preload(root *ast.Node) {
	ast.Walk(root, func(n *ast.Node) bool {
		if n.Type != ast.NodeConst {
			return true
		}
		segs := ast.ConstPath(n)
		for i := range segs {
			fq := strings.Join(segs[:i+1], "::")
			if !r.loader.Loaded(fq) {
				r.loader.Materialize(fq)
			}
		}
		// The children of a const chain are consts handled above.
		return false
	})
}
