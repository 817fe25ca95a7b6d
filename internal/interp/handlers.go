package interp

import (
	"strconv"

	"rubyscope/internal/ast"
	"rubyscope/internal/builder"
	"rubyscope/internal/definition"
	"rubyscope/internal/doctag"
	"rubyscope/internal/observability"
)

// --- scope-introducing nodes ---

func (i *Interpreter) onModule(node *ast.Node) error {
	def := i.defineNamespace(node, node.Child(0), nil)
	return i.walkScopeBody(def, node.Body(1))
}

func (i *Interpreter) onClass(node *ast.Node) error {
	superclass := i.resolveSuperclass(node.Child(1))
	def := i.defineNamespace(node, node.Child(0), superclass)
	return i.walkScopeBody(def, node.Body(2))
}

// resolveSuperclass resolves the superclass expression, defaulting to
// Object when the clause is missing or does not resolve to a constant.
func (i *Interpreter) resolveSuperclass(sup *ast.Node) *definition.Definition {
	if sup != nil && sup.Type == ast.NodeConst {
		if def, ok := i.res.Resolve(sup, i.scopes); ok {
			return def
		}
	}
	return i.coreClass("Object")
}

// defineNamespace builds or reuses the class/module definition named by the
// name node. Reopening adds the current scope as an extra parent instead of
// replacing anything.
func (i *Interpreter) defineNamespace(node, nameNode *ast.Node, superclass *definition.Definition) *definition.Definition {
	name := nameNode.Name
	target := i.scope()
	if qual := nameNode.Child(0); qual != nil {
		if def, ok := i.res.Resolve(qual, i.scopes); ok {
			target = def
		}
	}

	if existing, ok := target.LookupConstant(name); ok &&
		(existing.Kind == definition.KindClass || existing.Kind == definition.KindModule) {
		existing.AddParent(i.scope())
		i.assoc[node] = existing
		return existing
	}

	var def *definition.Definition
	if node.Type == ast.NodeClass {
		def = builder.Class(node, name, superclass)
	} else {
		def = builder.Module(node, name)
	}
	target.Define(def)
	built(def.Kind)
	i.assoc[node] = def
	return def
}

// walkScopeBody pushes the scope, walks the body with fresh visibility
// state, and pops.
func (i *Interpreter) walkScopeBody(def *definition.Definition, body []*ast.Node) error {
	prevVis := i.visibility
	i.visibility = definition.Public
	i.pushScope(def)

	for _, n := range body {
		if err := i.walk(n); err != nil {
			return err
		}
	}

	if err := i.popScope(); err != nil {
		return err
	}
	i.visibility = prevVis
	return nil
}

func (i *Interpreter) onSClass(node *ast.Node) error {
	targetNode := node.Child(0)
	frame, err := i.evalFrame(targetNode)
	if err != nil {
		return err
	}
	target := deref(lastValue(frame))
	if target == nil {
		// Dynamic singleton target; stay in the current scope so the body
		// is still walked rather than dropped.
		target = i.scope()
	}
	i.assoc[node] = target

	prevCall := i.callType
	if targetNode != nil && targetNode.Type == ast.NodeSelf {
		i.callType = definition.SingletonCall
	} else if target.Instance == definition.InstanceType {
		i.callType = definition.InstanceCall
	} else {
		i.callType = definition.SingletonCall
	}

	err = i.walkScopeBody(target, node.Body(1))
	i.callType = prevCall
	return err
}

// --- method definitions ---

func (i *Interpreter) onDef(node *ast.Node) error {
	def := builder.Method(node, i.scope(), builder.MethodOptions{
		CallType:   i.callType,
		Visibility: i.visibility,
	})
	i.scope().Define(def)
	return i.walkMethod(node, def, node.Child(0), node.Body(1))
}

func (i *Interpreter) onDefS(node *ast.Node) error {
	frame, err := i.evalFrame(node.Child(0))
	if err != nil {
		return err
	}
	receiver := deref(lastValue(frame))

	def := builder.Method(node, i.scope(), builder.MethodOptions{
		CallType:   definition.SingletonCall,
		Visibility: i.visibility,
		Receiver:   receiver,
	})

	target := i.scope()
	if receiver != nil {
		target = receiver
	}
	target.Define(def)

	return i.walkMethod(node, def, node.Child(1), node.Body(2))
}

func (i *Interpreter) walkMethod(node *ast.Node, def *definition.Definition, args *ast.Node, body []*ast.Node) error {
	built(def.Kind)
	i.assoc[node] = def

	tags := doctag.Parse(node.Comments)
	if len(tags.Return) > 0 {
		if class := i.coreClass(tags.Return[0]); class != nil {
			def.Value = definition.NewInstance(definition.KindConstant, tags.Return[0], class)
		}
	}

	i.methodTags = append(i.methodTags, tags)
	i.pushScope(def)

	if err := i.walk(args); err != nil {
		return err
	}
	for _, n := range body {
		if err := i.walk(n); err != nil {
			return err
		}
	}

	if err := i.popScope(); err != nil {
		return err
	}
	i.methodTags = i.methodTags[:len(i.methodTags)-1]

	// Methods keep their locals but leak the object state they touched.
	for _, kind := range []definition.Kind{
		definition.KindInstanceVariable,
		definition.KindClassVariable,
		definition.KindConstant,
	} {
		i.scope().CopyKind(def, kind)
	}
	return nil
}

func (i *Interpreter) onParam(node *ast.Node) error {
	frame, err := i.evalFrame(node.Children...)
	if err != nil {
		return err
	}

	def := builder.Variable(definition.KindLocalVariable, node.Name, lastValue(frame), node)
	built(def.Kind)

	if len(i.methodTags) > 0 {
		tags := i.methodTags[len(i.methodTags)-1]
		for _, typeName := range tags.Params[node.Name] {
			if class := i.coreClass(typeName); class != nil {
				def.AddParent(class)
			}
		}
	}

	scope := i.scope()
	scope.Define(def)
	scope.Parameters = append(scope.Parameters, def)
	return nil
}

// --- blocks ---

func (i *Interpreter) onBlock(node *ast.Node) error {
	if err := i.walk(node.Child(0)); err != nil {
		return err
	}

	def := builder.Block(node, i.scope())
	built(def.Kind)
	i.assoc[node] = def

	i.pushScope(def)
	if err := i.walk(node.Child(1)); err != nil {
		return err
	}
	for _, n := range node.Body(2) {
		if err := i.walk(n); err != nil {
			return err
		}
	}
	return i.popScope()
}

// --- assignment family ---

func (i *Interpreter) onAssign(node *ast.Node, kind definition.Kind) error {
	// Inside a mass-assignment target list the node has no value child; the
	// built definition goes onto the target frame instead of the scope.
	if node.Child(0) == nil && !i.targets.Empty() {
		def := builder.Variable(kind, node.Name, nil, node)
		i.targets.Push(def)
		return nil
	}

	frame, err := i.evalFrame(node.Child(0))
	if err != nil {
		return err
	}
	val := lastValue(frame)

	def := builder.Variable(kind, node.Name, val, node)
	built(kind)
	i.addVariable(def)
	i.pushAssigned(def)
	return nil
}

func (i *Interpreter) onOpAssign(node *ast.Node) error {
	target := node.Child(0)
	kind := variableKind(target.Type)

	// x += v reads x first.
	if existing, ok := i.lookupVariable(kind, target.Name); ok {
		existing.Reference()
	}

	frame, err := i.evalFrame(node.Child(1))
	if err != nil {
		return err
	}

	def := builder.Variable(kind, target.Name, lastValue(frame), node)
	built(kind)
	i.addVariable(def)
	i.pushAssigned(def)
	return nil
}

// onCondAssign handles ||= (assign only when absent) and &&= (assign only
// when present).
func (i *Interpreter) onCondAssign(node *ast.Node, onlyIfAbsent bool) error {
	target := node.Child(0)
	kind := variableKind(target.Type)
	existing, exists := i.lookupVariable(kind, target.Name)

	frame, err := i.evalFrame(node.Child(1))
	if err != nil {
		return err
	}

	if onlyIfAbsent && exists {
		existing.Reference()
		i.pushAssigned(existing)
		return nil
	}
	if !onlyIfAbsent && !exists {
		return nil
	}

	def := builder.Variable(kind, target.Name, lastValue(frame), node)
	built(kind)
	i.addVariable(def)
	i.pushAssigned(def)
	return nil
}

func (i *Interpreter) onConstAssign(node *ast.Node) error {
	if node.Child(1) == nil && !i.targets.Empty() {
		def := builder.Variable(definition.KindConstant, node.Name, nil, node)
		i.targets.Push(def)
		return nil
	}

	target := i.scope()
	// The receiver is a scope qualifier, not a value read; it is resolved
	// directly and never walked.
	if recv := node.Child(0); recv != nil {
		if def, ok := i.res.Resolve(recv, i.scopes); ok {
			target = def
		} else {
			// Unresolvable receiver: skip the assignment entirely.
			_, err := i.evalFrame(node.Child(1))
			return err
		}
	}

	frame, err := i.evalFrame(node.Child(1))
	if err != nil {
		return err
	}

	def := builder.Variable(definition.KindConstant, node.Name, lastValue(frame), node)
	built(definition.KindConstant)
	target.Define(def)
	i.pushAssigned(def)
	return nil
}

func (i *Interpreter) onMassAssign(node *ast.Node) error {
	i.targets.AddFrame()
	if err := i.walk(node.Child(0)); err != nil {
		i.targets.Pop() //nolint:errcheck
		return err
	}
	lhs, err := i.targets.Pop()
	if err != nil {
		return err
	}

	frame, err := i.evalFrame(node.Child(1))
	if err != nil {
		return err
	}
	rhs := lastValue(frame)

	for idx, target := range lhs {
		target.Value = massValue(rhs, idx)
		built(target.Kind)
		if target.Kind == definition.KindConstant {
			i.scope().Define(target)
		} else {
			i.addVariable(target)
		}
	}
	return nil
}

// massValue picks the right-hand value for the idx-th target: positional
// when the right side is an array with members, the whole value for the
// first target otherwise.
func massValue(rhs *definition.Definition, idx int) *definition.Definition {
	if rhs == nil {
		return nil
	}
	if member, ok := rhs.LookupLocal(definition.KindMember, strconv.Itoa(idx)); ok {
		return member.Value
	}
	if idx == 0 && !rhs.Has(definition.KindMember, "0") {
		return rhs
	}
	return nil
}

// addVariable registers an assignable definition in the right scope:
// globals always live on the root, everything else on the current scope.
func (i *Interpreter) addVariable(def *definition.Definition) {
	if def.Kind == definition.KindGlobalVariable {
		i.root.Define(def)
		return
	}
	i.scope().Define(def)
}

// pushAssigned propagates the assigned value so chained assignments
// (x = y = 1) see it.
func (i *Interpreter) pushAssigned(def *definition.Definition) {
	i.values.Push(def.ValueOrSelf())
}

func (i *Interpreter) lookupVariable(kind definition.Kind, name string) (*definition.Definition, bool) {
	if kind == definition.KindGlobalVariable {
		return i.root.Lookup(kind, name)
	}
	return i.scope().Lookup(kind, name)
}

func variableKind(t ast.NodeType) definition.Kind {
	switch t {
	case ast.NodeIvarAssign, ast.NodeIvar:
		return definition.KindInstanceVariable
	case ast.NodeCvarAssign, ast.NodeCvar:
		return definition.KindClassVariable
	case ast.NodeGvarAssign, ast.NodeGvar:
		return definition.KindGlobalVariable
	case ast.NodeConstAssign, ast.NodeConst:
		return definition.KindConstant
	default:
		return definition.KindLocalVariable
	}
}

// --- literals and reads ---

func (i *Interpreter) onPrimitive(node *ast.Node, className string) error {
	def := builder.Primitive(node, i.coreClass(className))
	i.values.Push(def)
	return nil
}

func (i *Interpreter) onArray(node *ast.Node) error {
	frame, err := i.evalFrame(node.Children...)
	if err != nil {
		return err
	}
	i.values.Push(builder.Array(node, i.coreClass("Array"), frame))
	return nil
}

func (i *Interpreter) onHash(node *ast.Node) error {
	frame, err := i.evalFrame(node.Children...)
	if err != nil {
		return err
	}
	i.values.Push(builder.Hash(node, i.coreClass("Hash"), frame))
	return nil
}

func (i *Interpreter) onPair(node *ast.Node) error {
	frame, err := i.evalFrame(node.Children...)
	if err != nil {
		return err
	}

	key := node.Child(0)
	name := ""
	if key != nil {
		name = key.Name
	}
	if name == "" && len(frame) > 0 {
		name = frame[0].Name
	}

	member := definition.New(definition.KindMember, name)
	member.Node = node
	member.Value = lastValue(frame)
	i.values.Push(member)
	return nil
}

func (i *Interpreter) onSelf(node *ast.Node) error {
	if def, ok := i.scope().Lookup(definition.KindKeyword, "self"); ok {
		def.Reference()
		i.values.Push(def)
		return nil
	}
	observability.LookupMisses.Inc()
	i.log.Debug("self not bound in scope", "scope", i.scope().Name)
	return nil
}

func (i *Interpreter) onConstRead(node *ast.Node) error {
	def, ok := i.res.Resolve(node, i.scopes)
	if !ok {
		return nil
	}
	def.Reference()
	i.values.Push(def.ValueOrSelf())
	i.assoc[node] = def
	return nil
}

func (i *Interpreter) onVarRead(node *ast.Node, kind definition.Kind) error {
	def, ok := i.lookupVariable(kind, node.Name)
	if !ok {
		observability.LookupMisses.Inc()
		i.log.Debug("unresolved variable read",
			"name", node.Name, "kind", kind.String(), "line", node.Loc.Line)
		return nil
	}
	def.Reference()
	i.values.Push(def.ValueOrSelf())
	return nil
}

// --- aliasing ---

func (i *Interpreter) onAlias(node *ast.Node) error {
	newName := aliasName(node.Child(0))
	oldName := aliasName(node.Child(1))
	if newName == "" || oldName == "" {
		return nil
	}

	if node.Child(1) != nil && node.Child(1).Type == ast.NodeGvar {
		if def, ok := i.root.Lookup(definition.KindGlobalVariable, oldName); ok {
			i.root.Add(definition.KindGlobalVariable, newName, def)
		}
		return nil
	}

	// A missing source method means no alias is created, silently.
	if def, ok := i.scope().Lookup(definition.KindInstanceMethod, oldName); ok {
		i.scope().Add(definition.KindInstanceMethod, newName, def)
	}
	return nil
}

func aliasName(n *ast.Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}
