// Package definition holds the semantic graph built by the interpreter: one
// Definition per named entity (class, module, method, variable, constant),
// linked by ordered parent lists and (kind, name)-keyed children.
package definition

import (
	"rubyscope/internal/ast"
)

type Kind int

const (
	KindClass Kind = iota
	KindModule
	KindInstanceMethod
	KindMethod // singleton method
	KindLocalVariable
	KindInstanceVariable
	KindClassVariable
	KindGlobalVariable
	KindConstant
	KindMember
	KindKeyword
	KindRoot
	KindGlobal
	KindBlock
)

var kindNames = map[Kind]string{
	KindClass:            "class",
	KindModule:           "module",
	KindInstanceMethod:   "instance_method",
	KindMethod:           "method",
	KindLocalVariable:    "local_variable",
	KindInstanceVariable: "instance_variable",
	KindClassVariable:    "class_variable",
	KindGlobalVariable:   "global_variable",
	KindConstant:         "constant",
	KindMember:           "member",
	KindKeyword:          "keyword",
	KindRoot:             "root",
	KindGlobal:           "global",
	KindBlock:            "block",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// VariableKind reports whether definitions of this kind are assignable
// variable slots.
func (k Kind) VariableKind() bool {
	switch k {
	case KindLocalVariable, KindInstanceVariable, KindClassVariable,
		KindGlobalVariable, KindConstant, KindMember:
		return true
	}
	return false
}

// TypeMode distinguishes a class-level Definition (the class itself) from a
// Definition standing in for an instance of that class.
type TypeMode int

const (
	ClassType TypeMode = iota
	InstanceType
)

type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "public"
}

// CallType selects which method table a call or definition targets.
type CallType int

const (
	InstanceCall CallType = iota
	SingletonCall
)

// MethodKind maps a call type to the definition kind methods of that type
// are stored under.
func (c CallType) MethodKind() Kind {
	if c == SingletonCall {
		return KindMethod
	}
	return KindInstanceMethod
}

type childKey struct {
	kind Kind
	name string
}

// Definition is the universal graph node. During a walk it is freely
// mutable; after the run it is frozen and only reads are meaningful.
type Definition struct {
	Name     string
	Kind     Kind
	Instance TypeMode

	// Value is the current value of a variable/constant slot, or the
	// declared return value of a method. Non-owning; may be nil.
	Value *Definition

	// Node is the syntax node this definition was built from, if any.
	Node *ast.Node

	// Method-only attributes.
	Visibility Visibility
	Parameters []*Definition

	// References counts reads; frozen definitions stop counting.
	References int

	parents    []*Definition
	children   map[childKey]*Definition
	childOrder []childKey
	frozen     bool
}

func New(kind Kind, name string) *Definition {
	return &Definition{
		Kind:     kind,
		Name:     name,
		children: make(map[childKey]*Definition),
	}
}

// NewInstance builds an instance-typed definition whose lookups fall
// through to the given class definition.
func NewInstance(kind Kind, name string, class *Definition) *Definition {
	d := New(kind, name)
	d.Instance = InstanceType
	if class != nil {
		d.AddParent(class)
	}
	return d
}

// Frozen reports whether the definition has been published read-only.
func (d *Definition) Frozen() bool { return d.frozen }

// Parents returns the parent list in insertion order. Callers must not
// mutate the returned slice.
func (d *Definition) Parents() []*Definition { return d.parents }

// AddParent appends a parent unless it is already present or is the
// definition itself. Insertion order is significant: it is the lookup
// precedence order for inherited names.
func (d *Definition) AddParent(p *Definition) {
	if p == nil || p == d || d.frozen {
		return
	}
	for _, existing := range d.parents {
		if existing == p {
			return
		}
	}
	d.parents = append(d.parents, p)
}

// Add inserts or overwrites the child entry for (kind, name). Overwriting
// is deliberate: methods and constants can be redefined.
func (d *Definition) Add(kind Kind, name string, def *Definition) {
	if d.frozen || def == nil {
		return
	}
	key := childKey{kind, name}
	if _, exists := d.children[key]; !exists {
		d.childOrder = append(d.childOrder, key)
	}
	d.children[key] = def
}

// Define is shorthand for registering a definition under its own kind and
// name.
func (d *Definition) Define(def *Definition) {
	d.Add(def.Kind, def.Name, def)
}

// LookupLocal checks only the definition's own children.
func (d *Definition) LookupLocal(kind Kind, name string) (*Definition, bool) {
	def, ok := d.children[childKey{kind, name}]
	return def, ok
}

// Lookup searches the definition and then its parents depth-first in
// insertion order, returning the first match. Absence is an ok=false
// result, never an error. A visited set guards against ancestry cycles.
func (d *Definition) Lookup(kind Kind, name string) (*Definition, bool) {
	return d.lookup(kind, name, map[*Definition]bool{})
}

func (d *Definition) lookup(kind Kind, name string, seen map[*Definition]bool) (*Definition, bool) {
	if seen[d] {
		return nil, false
	}
	seen[d] = true

	if def, ok := d.LookupLocal(kind, name); ok {
		return def, true
	}
	// Method scopes are opaque to local variables: a method sees enclosing
	// constants and object state through its parents, but never outer locals.
	if kind == KindLocalVariable && (d.Kind == KindInstanceMethod || d.Kind == KindMethod) {
		return nil, false
	}
	for _, p := range d.parents {
		if def, ok := p.lookup(kind, name, seen); ok {
			return def, true
		}
	}
	return nil, false
}

// Has reports existence without touching reference counts.
func (d *Definition) Has(kind Kind, name string) bool {
	_, ok := d.Lookup(kind, name)
	return ok
}

// LookupConstant resolves a constant name against this definition; class
// and module definitions double as constants in their enclosing scope, so
// all three kinds are consulted.
func (d *Definition) LookupConstant(name string) (*Definition, bool) {
	for _, kind := range []Kind{KindConstant, KindClass, KindModule} {
		if def, ok := d.Lookup(kind, name); ok {
			return def, true
		}
	}
	return nil, false
}

// LookupMethod finds a method of the given call type.
func (d *Definition) LookupMethod(callType CallType, name string) (*Definition, bool) {
	return d.Lookup(callType.MethodKind(), name)
}

// CallMethod resolves a method and returns its declared return value, if
// both the method and its return type are known.
func (d *Definition) CallMethod(callType CallType, name string) (*Definition, bool) {
	method, ok := d.LookupMethod(callType, name)
	if !ok || method.Value == nil {
		return nil, false
	}
	return method.Value, true
}

// CopyKind copies all children of one kind from another definition into
// this one. Used to export instance/class variables and constants from a
// closed method scope into its enclosing scope.
func (d *Definition) CopyKind(other *Definition, kind Kind) {
	for _, key := range other.childOrder {
		if key.kind != kind {
			continue
		}
		d.Add(key.kind, key.name, other.children[key])
	}
}

// ChildrenOfKind returns this definition's own children of one kind in
// insertion order.
func (d *Definition) ChildrenOfKind(kind Kind) []*Definition {
	var out []*Definition
	for _, key := range d.childOrder {
		if key.kind == kind {
			out = append(out, d.children[key])
		}
	}
	return out
}

// EachChild visits own children in insertion order.
func (d *Definition) EachChild(fn func(kind Kind, name string, def *Definition)) {
	for _, key := range d.childOrder {
		fn(key.kind, key.name, d.children[key])
	}
}

// Reference records a read. Frozen graphs are shared between consumers, so
// counting stops at freeze time.
func (d *Definition) Reference() {
	if !d.frozen {
		d.References++
	}
}

// ValueOrSelf returns the current value when one is set, otherwise the
// definition itself. This is what variable reads push onto the value stack.
func (d *Definition) ValueOrSelf() *Definition {
	if d.Value != nil {
		return d.Value
	}
	return d
}

// Freeze marks the whole graph reachable from d immutable: child and parent
// mutation becomes a no-op and reference counting stops. Safe on cyclic
// graphs.
func (d *Definition) Freeze() {
	d.freeze(map[*Definition]bool{})
}

func (d *Definition) freeze(seen map[*Definition]bool) {
	if d == nil || seen[d] {
		return
	}
	seen[d] = true
	d.frozen = true
	if d.Value != nil {
		d.Value.freeze(seen)
	}
	for _, p := range d.parents {
		p.freeze(seen)
	}
	for _, key := range d.childOrder {
		d.children[key].freeze(seen)
	}
	for _, p := range d.Parameters {
		p.freeze(seen)
	}
}
