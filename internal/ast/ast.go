// Package ast defines the syntax tree consumed by the abstract interpreter.
//
// The tree is produced by internal/parser from a tree-sitter parse, but the
// interpreter only ever sees these nodes. Node kinds form a closed enum so
// that dispatch is an exhaustive switch rather than a name lookup.
package ast

// NodeType identifies the syntactic construct a Node represents.
type NodeType int

const (
	NodeInvalid NodeType = iota

	// Structure
	NodeBegin  // statement sequence (program body, class/method bodies)
	NodeClass  // class Foo < Bar ... end
	NodeModule // module Foo ... end
	NodeSClass // class << self ... end
	NodeDef    // def foo ... end
	NodeDefS   // def self.foo / def obj.foo ... end
	NodeBlock  // do ... end / { ... } attached to a call
	NodeSend   // method call

	// Assignment
	NodeLocalAssign // x = v
	NodeIvarAssign  // @x = v
	NodeCvarAssign  // @@x = v
	NodeGvarAssign  // $x = v
	NodeConstAssign // X = v / Foo::X = v
	NodeMassAssign  // a, b = v
	NodeMassTargets // the left-hand target list of a mass assignment
	NodeOpAssign    // x += v and friends
	NodeOrAssign    // x ||= v
	NodeAndAssign   // x &&= v

	// Literals
	NodeInt
	NodeFloat
	NodeStr
	NodeSym
	NodeArray
	NodeHash
	NodePair

	// Reads
	NodeSelf
	NodeConst // constant read, possibly scoped (Children[0] is the outer path)
	NodeLvar
	NodeIvar
	NodeCvar
	NodeGvar

	// Method parameters
	NodeArgs
	NodeArg      // required parameter
	NodeOptArg   // parameter with a default value
	NodeRestArg  // *rest
	NodeBlockArg // &block
	NodeKwOptArg // key: default

	// Misc
	NodeAlias    // alias new old / alias $new $old
	NodePreExec  // BEGIN { ... }
	NodePostExec // END { ... }
	NodeOther    // anything the analyzer does not model; children still walked
)

var nodeTypeNames = map[NodeType]string{
	NodeInvalid:     "invalid",
	NodeBegin:       "begin",
	NodeClass:       "class",
	NodeModule:      "module",
	NodeSClass:      "sclass",
	NodeDef:         "def",
	NodeDefS:        "defs",
	NodeBlock:       "block",
	NodeSend:        "send",
	NodeLocalAssign: "lvasgn",
	NodeIvarAssign:  "ivasgn",
	NodeCvarAssign:  "cvasgn",
	NodeGvarAssign:  "gvasgn",
	NodeConstAssign: "casgn",
	NodeMassAssign:  "masgn",
	NodeMassTargets: "mlhs",
	NodeOpAssign:    "op_asgn",
	NodeOrAssign:    "or_asgn",
	NodeAndAssign:   "and_asgn",
	NodeInt:         "int",
	NodeFloat:       "float",
	NodeStr:         "str",
	NodeSym:         "sym",
	NodeArray:       "array",
	NodeHash:        "hash",
	NodePair:        "pair",
	NodeSelf:        "self",
	NodeConst:       "const",
	NodeLvar:        "lvar",
	NodeIvar:        "ivar",
	NodeCvar:        "cvar",
	NodeGvar:        "gvar",
	NodeArgs:        "args",
	NodeArg:         "arg",
	NodeOptArg:      "optarg",
	NodeRestArg:     "restarg",
	NodeBlockArg:    "blockarg",
	NodeKwOptArg:    "kwoptarg",
	NodeAlias:       "alias",
	NodePreExec:     "preexe",
	NodePostExec:    "postexe",
	NodeOther:       "other",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Location is a source position, 1-based like editors report it.
type Location struct {
	File   string
	Line   int
	Column int
}

// Node is one syntax tree node. Child positions are fixed per type and
// entries may be nil where a slot is optional:
//
//	NodeClass:       [name const, superclass expr or nil, body...]
//	NodeModule:      [name const, body...]
//	NodeSClass:      [target expr, body...]
//	NodeDef:         [args or nil, body...]                 Name = method name
//	NodeDefS:        [receiver, args or nil, body...]       Name = method name
//	NodeBlock:       [call send, args or nil, body...]
//	NodeSend:        [receiver or nil, argument exprs...]   Name = method name
//	Node*Assign:     [value expr]                           Name = target name
//	NodeConstAssign: [scope expr or nil, value expr]        Name = constant name
//	NodeMassAssign:  [NodeMassTargets, rhs expr]
//	NodeOp/Or/AndAssign: [target assign node (no value child), value expr]
//	NodeConst:       [outer path const or nil]              Name = segment name
//	NodePair:        [key, value]
//	NodeOptArg/NodeKwOptArg: [default expr]                 Name = parameter name
//	NodeAlias:       [new name node, old name node]
//
// Literal and variable nodes carry their text in Name.
type Node struct {
	Type     NodeType
	Name     string
	Children []*Node
	Loc      Location

	// Comments holds the raw leading comment lines attached to this node
	// (currently captured for method definitions only), used for
	// @param/@return type hints.
	Comments []string
}

// New builds a node; nil children are kept to preserve slot positions.
func New(t NodeType, name string, children ...*Node) *Node {
	return &Node{Type: t, Name: name, Children: children}
}

// Child returns the i-th child or nil when the slot is absent.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Body returns the children starting at index from, skipping nil slots.
// Used by scope-introducing handlers to walk their statement list.
func (n *Node) Body(from int) []*Node {
	if n == nil || from >= len(n.Children) {
		return nil
	}
	out := make([]*Node, 0, len(n.Children)-from)
	for _, c := range n.Children[from:] {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ConstPath flattens a possibly scoped constant read into its segments,
// outermost first: A::B::C yields ["A", "B", "C"]. Returns nil when the
// node is not a constant chain (for example `foo::Bar` with a dynamic
// receiver).
func ConstPath(n *Node) []string {
	var segs []string
	for cur := n; cur != nil; {
		if cur.Type != NodeConst {
			return nil
		}
		segs = append(segs, cur.Name)
		cur = cur.Child(0)
	}
	// collected innermost-first; reverse
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return segs
}

// Walk visits n and every non-nil descendant in depth-first order. The
// visitor returns false to prune the subtree below the current node.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}
