// Package resolver resolves constant paths against the scope chain and
// materializes externally defined constants from the definition database.
package resolver

import (
	"log/slog"
	"strings"

	"rubyscope/internal/definition"
	"rubyscope/internal/observability"
	"rubyscope/internal/stddb"
)

// Loader materializes stddb records into the definition graph on demand.
// A loaded set keyed by fully qualified name guarantees each constant is
// processed once, which also terminates cyclic reference chains.
type Loader struct {
	source stddb.Source
	root   *definition.Definition
	loaded map[string]bool
	log    *slog.Logger
	err    error
}

func NewLoader(source stddb.Source, root *definition.Definition, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		source: source,
		root:   root,
		loaded: make(map[string]bool),
		log:    log,
	}
}

// Err returns the first database failure seen, if any. Failures degrade
// resolution to absence instead of aborting the walk; the runner reports
// them after the fact.
func (l *Loader) Err() error { return l.err }

// Loaded reports whether a fully qualified constant has already been
// materialized (or attempted).
func (l *Loader) Loaded(name string) bool { return l.loaded[name] }

// Materialize ensures the fully qualified constant exists in the graph,
// pulling its record (and, transitively, its parents and return types) from
// the database. Absence is an ok=false result.
func (l *Loader) Materialize(name string) (*definition.Definition, bool) {
	if name == "" || l.source == nil {
		return nil, false
	}
	if l.loaded[name] {
		return l.lookupQualified(name)
	}
	// Mark before descending: records can reference each other cyclically.
	l.loaded[name] = true

	rec, err := l.source.Lookup(name)
	if err != nil {
		if l.err == nil {
			l.err = err
		}
		l.log.Error("definition database lookup failed", "constant", name, "error", err)
		return nil, false
	}
	if rec == nil {
		return nil, false
	}

	def := definition.New(recordKind(rec), simpleName(name))
	l.register(name, def)
	observability.ConstantsAutoloaded.Inc()
	l.log.Debug("materialized external constant", "constant", name)

	for _, parent := range rec.Parents {
		if p, ok := l.Materialize(parent); ok {
			def.AddParent(p)
		}
	}
	for _, m := range rec.InstanceMethods {
		def.Define(l.buildMethod(m, definition.KindInstanceMethod))
	}
	for _, m := range rec.SingletonMethods {
		def.Define(l.buildMethod(m, definition.KindMethod))
	}
	for _, child := range rec.Constants {
		l.Materialize(child)
	}

	return def, true
}

func (l *Loader) buildMethod(m stddb.Method, kind definition.Kind) *definition.Definition {
	method := definition.New(kind, m.Name)
	for _, p := range m.Parameters {
		param := definition.New(definition.KindLocalVariable, p.Name)
		method.Add(definition.KindLocalVariable, p.Name, param)
		method.Parameters = append(method.Parameters, param)
	}
	if m.ReturnType != "" {
		if class, ok := l.Materialize(m.ReturnType); ok {
			method.Value = definition.NewInstance(definition.KindConstant, m.ReturnType, class)
		}
	}
	return method
}

// register hangs the definition off its lexical parent: root for top-level
// names, the enclosing constant for qualified ones.
func (l *Loader) register(name string, def *definition.Definition) {
	idx := strings.LastIndex(name, "::")
	if idx < 0 {
		l.root.Define(def)
		return
	}
	parent, ok := l.Materialize(name[:idx])
	if !ok {
		// Orphan record; keep it reachable from the root anyway.
		parent = l.root
	}
	parent.Add(def.Kind, def.Name, def)
}

func (l *Loader) lookupQualified(name string) (*definition.Definition, bool) {
	current := l.root
	for _, seg := range strings.Split(name, "::") {
		next, ok := current.LookupConstant(seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func recordKind(rec *stddb.Record) definition.Kind {
	switch {
	case rec.Module:
		return definition.KindModule
	case len(rec.Parents) > 0 || len(rec.InstanceMethods) > 0 || len(rec.SingletonMethods) > 0:
		return definition.KindClass
	default:
		return definition.KindConstant
	}
}

func simpleName(name string) string {
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		return name[idx+2:]
	}
	return name
}
