package interp

import (
	"strconv"

	"rubyscope/internal/ast"
	"rubyscope/internal/definition"
	"rubyscope/internal/observability"
)

// specialSend is an after-handler for a method call the interpreter models
// explicitly. frame holds the collected values: the receiver's value first
// when one resolved, then one entry per argument that produced a value.
// Returning true means the handler pushed (or deliberately withheld) the
// call's value and the generic return-type lookup is skipped.
type specialSend func(i *Interpreter, node *ast.Node, frame []*definition.Definition) bool

var specialSends = map[string]specialSend{
	"include":      handleInclude,
	"extend":       handleExtend,
	"public":       handleVisibility(definition.Public),
	"protected":    handleVisibility(definition.Protected),
	"private":      handleVisibility(definition.Private),
	"[]=":          handleIndexAssign,
	"alias_method": handleAliasMethod,
	"new":          handleNew,
}

func (i *Interpreter) onSend(node *ast.Node) error {
	i.values.AddFrame()

	for _, c := range node.Children {
		if err := i.walk(c); err != nil {
			i.values.Pop() //nolint:errcheck
			return err
		}
	}

	frame, err := i.values.Pop()
	if err != nil {
		return err
	}

	if handler, ok := specialSends[node.Name]; ok {
		if handler(i, node, frame) {
			return nil
		}
	}

	// Arguments are not modeled in depth: drop exactly one trailing entry
	// per argument node, leaving the receiver's value (if it produced one).
	argCount := 0
	for _, c := range node.Children[1:] {
		if c != nil {
			argCount++
		}
	}
	var receiver *definition.Definition
	if len(frame) > argCount {
		receiver = frame[0]
	}

	context := i.scope()
	if receiver != nil {
		context = receiver
	}
	// A send in an implicitly wrapped block belongs to the block's owner.
	if context.Kind == definition.KindBlock && len(context.Parents()) > 0 {
		context = context.Parents()[0]
	}
	i.assoc[node] = context

	if ret, ok := context.CallMethod(sendCallType(receiver), node.Name); ok {
		i.values.Push(ret)
		return nil
	}
	observability.LookupMisses.Inc()
	i.log.Debug("unresolved method call", "method", node.Name, "line", node.Loc.Line)
	return nil
}

// sendCallType picks the method table to consult: class-typed receivers get
// singleton methods, everything else instance methods.
func sendCallType(receiver *definition.Definition) definition.CallType {
	if receiver == nil || receiver.Instance == definition.InstanceType {
		return definition.InstanceCall
	}
	switch deref(receiver).Kind {
	case definition.KindClass, definition.KindModule:
		return definition.SingletonCall
	}
	return definition.InstanceCall
}

// handleInclude merges each module argument's constants and instance
// methods into the current scope, emulating mixins without true multiple
// inheritance.
func handleInclude(i *Interpreter, node *ast.Node, frame []*definition.Definition) bool {
	return mergeModules(i, frame, definition.KindInstanceMethod)
}

// handleExtend is include's singleton counterpart: constants plus singleton
// methods.
func handleExtend(i *Interpreter, node *ast.Node, frame []*definition.Definition) bool {
	return mergeModules(i, frame, definition.KindMethod)
}

func mergeModules(i *Interpreter, frame []*definition.Definition, methodKind definition.Kind) bool {
	scope := i.scope()
	for _, arg := range frame {
		if arg == nil {
			continue
		}
		arg = deref(arg)
		scope.CopyKind(arg, definition.KindConstant)
		scope.CopyKind(arg, methodKind)
	}
	return true
}

// handleVisibility covers private/protected/public. The bare form flips the
// interpreter's visibility state for subsequently defined methods; the form
// with method-name arguments retags those methods.
func handleVisibility(v definition.Visibility) specialSend {
	return func(i *Interpreter, node *ast.Node, frame []*definition.Definition) bool {
		args := node.Body(1)
		if len(args) == 0 {
			i.visibility = v
			return true
		}
		for _, arg := range args {
			if arg.Type != ast.NodeSym && arg.Type != ast.NodeStr {
				continue
			}
			if def, ok := i.scope().Lookup(definition.KindInstanceMethod, arg.Name); ok {
				def.Visibility = v
			}
		}
		return true
	}
}

// handleIndexAssign models a[i] = v (and multi-index forms): one member per
// index argument, valued positionally from an assigned array literal or by
// the whole right-hand value for a single index.
func handleIndexAssign(i *Interpreter, node *ast.Node, frame []*definition.Definition) bool {
	if len(frame) < 3 {
		return true // receiver, index or value missing: nothing to record
	}
	receiver := frame[0]
	indexes := frame[1 : len(frame)-1]
	value := frame[len(frame)-1]

	for idx, indexDef := range indexes {
		member := definition.New(definition.KindMember, indexDef.Name)
		member.Node = node
		if len(indexes) == 1 {
			member.Value = value
		} else if v, ok := value.LookupLocal(definition.KindMember, strconv.Itoa(idx)); ok {
			member.Value = v.Value
		}
		receiver.Define(member)
		built(definition.KindMember)
	}
	return true
}

// handleAliasMethod mirrors the alias keyword for the alias_method form. A
// missing source method silently creates no alias.
func handleAliasMethod(i *Interpreter, node *ast.Node, frame []*definition.Definition) bool {
	args := node.Body(1)
	if len(args) < 2 {
		return true
	}
	newName, oldName := args[0].Name, args[1].Name
	if def, ok := i.scope().Lookup(definition.KindInstanceMethod, oldName); ok {
		i.scope().Add(definition.KindInstanceMethod, newName, def)
	}
	return true
}

// handleNew infers Klass.new as an instance of Klass. Anything else falls
// through to normal resolution.
func handleNew(i *Interpreter, node *ast.Node, frame []*definition.Definition) bool {
	if node.Child(0) == nil || len(frame) == 0 {
		return false
	}
	receiver := deref(frame[0])
	if receiver == nil || receiver.Kind != definition.KindClass || receiver.Instance != definition.ClassType {
		return false
	}
	i.assoc[node] = receiver
	i.values.Push(definition.NewInstance(definition.KindConstant, receiver.Name, receiver))
	return true
}
