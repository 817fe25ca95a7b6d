// Package builder turns syntax nodes into Definition graph nodes. Each
// builder is a pure function of (node, enclosing scope, options); the
// interpreter decides where the result goes.
package builder

import (
	"strconv"

	"rubyscope/internal/ast"
	"rubyscope/internal/definition"
)

// Module creates a module definition for the given name node. The caller
// handles reuse when the scope already has a same-name definition.
func Module(node *ast.Node, name string) *definition.Definition {
	def := definition.New(definition.KindModule, name)
	def.Node = node
	def.Add(definition.KindKeyword, "self", keywordSelf(def, definition.ClassType))
	return def
}

// Class creates a class definition with the resolved superclass as its
// first parent. Callers fall back to the Object definition when the
// superclass expression did not resolve to a constant.
func Class(node *ast.Node, name string, superclass *definition.Definition) *definition.Definition {
	def := definition.New(definition.KindClass, name)
	def.Node = node
	def.AddParent(superclass)
	def.Add(definition.KindKeyword, "self", keywordSelf(def, definition.ClassType))
	return def
}

// MethodOptions captures the interpreter state a method definition is born
// under.
type MethodOptions struct {
	CallType   definition.CallType
	Visibility definition.Visibility
	Receiver   *definition.Definition
}

// Method creates a method definition. The scope parent lets the method body
// see enclosing constants and object state; local variables stay private to
// the method (see definition.Lookup).
func Method(node *ast.Node, scope *definition.Definition, opts MethodOptions) *definition.Definition {
	def := definition.New(opts.CallType.MethodKind(), node.Name)
	def.Node = node
	def.Visibility = opts.Visibility
	def.AddParent(scope)

	self := definition.New(definition.KindKeyword, "self")
	if opts.Receiver != nil {
		self.AddParent(opts.Receiver)
		self.Instance = opts.Receiver.Instance
	} else if opts.CallType == definition.SingletonCall {
		self.AddParent(scope)
		self.Instance = definition.ClassType
	} else {
		self.AddParent(scope)
		self.Instance = definition.InstanceType
	}
	def.Add(definition.KindKeyword, "self", self)

	return def
}

// Block creates an ephemeral scope definition for a block. Blocks share
// variable visibility with their enclosing scope; the definition exists for
// association bookkeeping and receiver tracking, not as a lookup barrier.
func Block(node *ast.Node, scope *definition.Definition) *definition.Definition {
	def := definition.New(definition.KindBlock, "block")
	def.Node = node
	def.AddParent(scope)
	return def
}

// Variable creates an assignable slot of the given kind holding value.
func Variable(kind definition.Kind, name string, value *definition.Definition, node *ast.Node) *definition.Definition {
	def := definition.New(kind, name)
	def.Node = node
	def.Value = value
	return def
}

// Primitive wraps a literal node into an instance of its runtime class
// (Integer, Float, String, Symbol). The literal text is kept as the name.
func Primitive(node *ast.Node, class *definition.Definition) *definition.Definition {
	def := definition.NewInstance(definition.KindConstant, node.Name, class)
	def.Node = node
	return def
}

// Array wraps stack-collected element values into a synthetic Array
// instance with one numbered member per element.
func Array(node *ast.Node, class *definition.Definition, elements []*definition.Definition) *definition.Definition {
	def := definition.NewInstance(definition.KindConstant, "array", class)
	def.Node = node
	for i, el := range elements {
		member := definition.New(definition.KindMember, strconv.Itoa(i))
		member.Value = el
		def.Define(member)
	}
	return def
}

// Hash wraps stack-collected pair members into a synthetic Hash instance
// with a named member per key. Non-member values (a dynamic key expression
// that produced something else) are dropped.
func Hash(node *ast.Node, class *definition.Definition, members []*definition.Definition) *definition.Definition {
	def := definition.NewInstance(definition.KindConstant, "hash", class)
	def.Node = node
	for _, m := range members {
		if m != nil && m.Kind == definition.KindMember {
			def.Define(m)
		}
	}
	return def
}

func keywordSelf(target *definition.Definition, mode definition.TypeMode) *definition.Definition {
	self := definition.New(definition.KindKeyword, "self")
	self.Instance = mode
	self.AddParent(target)
	return self
}
