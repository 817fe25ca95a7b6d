package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"rubyscope/internal/ast"
)

// converter maps tree-sitter-ruby node kinds onto the closed ast.NodeType
// enum. Constructs the analyzer does not model become NodeOther with their
// named children converted, so definitions nested inside them are still
// seen by the walk.
type converter struct {
	source []byte
	path   string
}

func (c *converter) text(n *sitter.Node) string {
	return string(c.source[n.StartByte():n.EndByte()])
}

func (c *converter) loc(n *sitter.Node) ast.Location {
	pos := n.StartPosition()
	return ast.Location{
		File:   c.path,
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column) + 1,
	}
}

func (c *converter) convert(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "program":
		return c.statementsNode(ast.NodeBegin, n)

	case "class":
		name := c.convert(n.ChildByFieldName("name"))
		return c.node(n, ast.NodeClass, constName(name),
			prepend([]*ast.Node{name, c.superclass(n)}, c.bodyStatements(n))...)

	case "module":
		name := c.convert(n.ChildByFieldName("name"))
		return c.node(n, ast.NodeModule, constName(name),
			prepend([]*ast.Node{name}, c.bodyStatements(n))...)

	case "singleton_class":
		return c.node(n, ast.NodeSClass, "",
			prepend([]*ast.Node{c.convert(n.ChildByFieldName("value"))}, c.bodyStatements(n))...)

	case "method":
		return c.node(n, ast.NodeDef, c.methodName(n.ChildByFieldName("name")),
			prepend([]*ast.Node{c.params(n.ChildByFieldName("parameters"))}, c.methodBody(n))...)

	case "singleton_method":
		return c.node(n, ast.NodeDefS, c.methodName(n.ChildByFieldName("name")),
			prepend([]*ast.Node{
				c.convert(n.ChildByFieldName("object")),
				c.params(n.ChildByFieldName("parameters")),
			}, c.methodBody(n))...)

	case "call":
		return c.call(n)

	case "assignment":
		return c.assignment(n)

	case "operator_assignment":
		return c.operatorAssignment(n)

	case "constant":
		return c.node(n, ast.NodeConst, c.text(n))

	case "scope_resolution":
		name := n.ChildByFieldName("name")
		if name == nil {
			return c.generic(n)
		}
		return c.node(n, ast.NodeConst, c.text(name), c.convert(n.ChildByFieldName("scope")))

	case "identifier":
		// Bare identifiers are local variable reads when the name is known
		// and implicit self calls otherwise; the interpreter's lookup
		// handles the distinction by degrading on a miss. The visibility
		// modifiers are the exception: written without arguments they parse
		// as plain identifiers but are really receiverless calls.
		text := c.text(n)
		switch text {
		case "private", "protected", "public":
			return c.node(n, ast.NodeSend, text, nil)
		}
		return c.node(n, ast.NodeLvar, text)

	case "instance_variable":
		return c.node(n, ast.NodeIvar, c.text(n))
	case "class_variable":
		return c.node(n, ast.NodeCvar, c.text(n))
	case "global_variable":
		return c.node(n, ast.NodeGvar, c.text(n))
	case "self":
		return c.node(n, ast.NodeSelf, "self")

	case "integer":
		return c.node(n, ast.NodeInt, c.text(n))
	case "float":
		return c.node(n, ast.NodeFloat, c.text(n))
	case "string", "heredoc_beginning":
		return c.node(n, ast.NodeStr, stringContent(c.text(n)))
	case "simple_symbol":
		return c.node(n, ast.NodeSym, strings.TrimPrefix(c.text(n), ":"))
	case "delimited_symbol":
		return c.node(n, ast.NodeSym, symbolContent(c.text(n)))
	case "hash_key_symbol":
		return c.node(n, ast.NodeSym, c.text(n))

	case "array":
		return c.namedChildrenNode(n, ast.NodeArray, "")
	case "hash":
		return c.namedChildrenNode(n, ast.NodeHash, "")
	case "pair":
		return c.node(n, ast.NodePair, "",
			c.pairKey(n.ChildByFieldName("key")),
			c.convert(n.ChildByFieldName("value")))

	case "alias":
		return c.node(n, ast.NodeAlias, "",
			c.aliasName(n.ChildByFieldName("name")),
			c.aliasName(n.ChildByFieldName("alias")))

	case "begin_block":
		return c.statementsNode(ast.NodePreExec, n)
	case "end_block":
		return c.statementsNode(ast.NodePostExec, n)

	case "comment":
		return nil

	default:
		return c.generic(n)
	}
}

// node builds an ast node with this converter's location info.
func (c *converter) node(n *sitter.Node, t ast.NodeType, name string, children ...*ast.Node) *ast.Node {
	return &ast.Node{Type: t, Name: name, Children: children, Loc: c.loc(n)}
}

// generic converts an unmodeled construct, keeping its named children
// visible to the walk.
func (c *converter) generic(n *sitter.Node) *ast.Node {
	out := c.node(n, ast.NodeOther, n.Kind())
	for j := uint(0); j < n.NamedChildCount(); j++ {
		if conv := c.convert(n.NamedChild(j)); conv != nil {
			out.Children = append(out.Children, conv)
		}
	}
	return out
}

func (c *converter) namedChildrenNode(n *sitter.Node, t ast.NodeType, name string) *ast.Node {
	out := c.node(n, t, name)
	for j := uint(0); j < n.NamedChildCount(); j++ {
		if conv := c.convert(n.NamedChild(j)); conv != nil {
			out.Children = append(out.Children, conv)
		}
	}
	return out
}

// statementsNode converts a statement container, attaching contiguous
// leading comment lines to the method definition that follows them.
func (c *converter) statementsNode(t ast.NodeType, n *sitter.Node) *ast.Node {
	return c.statements(t, n, nil)
}

func (c *converter) statements(t ast.NodeType, n *sitter.Node, pending []string) *ast.Node {
	out := c.node(n, t, "")
	for j := uint(0); j < n.NamedChildCount(); j++ {
		child := n.NamedChild(j)
		if child.Kind() == "comment" {
			pending = append(pending, c.text(child))
			continue
		}
		conv := c.convert(child)
		if conv == nil {
			pending = nil
			continue
		}
		if len(pending) > 0 && (conv.Type == ast.NodeDef || conv.Type == ast.NodeDefS) {
			conv.Comments = pending
		}
		pending = nil
		out.Children = append(out.Children, conv)
	}
	return out
}

// bodyStatements converts a scope node's body_statement child. Comments
// between the header line and the body hang off the outer node, not the
// body_statement, so they are collected here and carried in as pending for
// the body's first statement.
func (c *converter) bodyStatements(n *sitter.Node) []*ast.Node {
	var pending []string
	for j := uint(0); j < n.NamedChildCount(); j++ {
		child := n.NamedChild(j)
		switch child.Kind() {
		case "comment":
			pending = append(pending, c.text(child))
		case "body_statement":
			return c.statements(ast.NodeBegin, child, pending).Children
		}
	}
	return nil
}

func (c *converter) methodBody(n *sitter.Node) []*ast.Node {
	if stmts := c.bodyStatements(n); stmts != nil {
		return stmts
	}
	// Endless method: the body field is a single expression.
	if body := n.ChildByFieldName("body"); body != nil && body.Kind() != "body_statement" {
		if conv := c.convert(body); conv != nil {
			return []*ast.Node{conv}
		}
	}
	return nil
}

func (c *converter) superclass(n *sitter.Node) *ast.Node {
	s := n.ChildByFieldName("superclass")
	if s == nil {
		return nil
	}
	if s.NamedChildCount() == 0 {
		return nil
	}
	return c.convert(s.NamedChild(0))
}

func (c *converter) call(n *sitter.Node) *ast.Node {
	method := n.ChildByFieldName("method")
	if method == nil {
		return c.generic(n)
	}

	send := c.node(n, ast.NodeSend, c.methodName(method),
		c.convert(n.ChildByFieldName("receiver")))
	if args := n.ChildByFieldName("arguments"); args != nil {
		for j := uint(0); j < args.NamedChildCount(); j++ {
			if conv := c.convert(args.NamedChild(j)); conv != nil {
				send.Children = append(send.Children, conv)
			}
		}
	}

	block := n.ChildByFieldName("block")
	if block == nil {
		return send
	}
	return c.node(n, ast.NodeBlock, "",
		prepend([]*ast.Node{send, c.params(blockParams(block))}, c.blockBody(block))...)
}

func blockParams(block *sitter.Node) *sitter.Node {
	if p := block.ChildByFieldName("parameters"); p != nil {
		return p
	}
	return nil
}

func (c *converter) blockBody(block *sitter.Node) []*ast.Node {
	if stmts := c.bodyStatements(block); stmts != nil {
		return stmts
	}
	if body := block.ChildByFieldName("body"); body != nil {
		return c.statementsNode(ast.NodeBegin, body).Children
	}
	return nil
}

func (c *converter) assignment(n *sitter.Node) *ast.Node {
	left := n.ChildByFieldName("left")
	right := c.rhs(n.ChildByFieldName("right"))
	if left == nil {
		return c.generic(n)
	}

	switch left.Kind() {
	case "identifier":
		return c.node(n, ast.NodeLocalAssign, c.text(left), right)
	case "instance_variable":
		return c.node(n, ast.NodeIvarAssign, c.text(left), right)
	case "class_variable":
		return c.node(n, ast.NodeCvarAssign, c.text(left), right)
	case "global_variable":
		return c.node(n, ast.NodeGvarAssign, c.text(left), right)
	case "constant":
		return c.node(n, ast.NodeConstAssign, c.text(left), nil, right)
	case "scope_resolution":
		name := left.ChildByFieldName("name")
		if name == nil {
			return c.generic(n)
		}
		return c.node(n, ast.NodeConstAssign, c.text(name),
			c.convert(left.ChildByFieldName("scope")), right)
	case "left_assignment_list":
		return c.node(n, ast.NodeMassAssign, "", c.massTargets(left), right)
	case "element_reference":
		// a[i] = v desugars to a.[]=(i, v).
		send := c.node(n, ast.NodeSend, "[]=",
			c.convert(left.ChildByFieldName("object")))
		for j := uint(0); j < left.NamedChildCount(); j++ {
			child := left.NamedChild(j)
			if object := left.ChildByFieldName("object"); object != nil && child.Id() == object.Id() {
				continue
			}
			if conv := c.convert(child); conv != nil {
				send.Children = append(send.Children, conv)
			}
		}
		send.Children = append(send.Children, right)
		return send
	case "call":
		// a.b = v desugars to a.b=(v).
		method := left.ChildByFieldName("method")
		if method == nil {
			return c.generic(n)
		}
		return c.node(n, ast.NodeSend, c.methodName(method)+"=",
			c.convert(left.ChildByFieldName("receiver")), right)
	default:
		return c.node(n, ast.NodeOther, "assignment", c.convert(left), right)
	}
}

// rhs converts an assignment's right side; a bare value list becomes an
// array so mass assignment can pair positionally.
func (c *converter) rhs(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == "right_assignment_list" {
		return c.namedChildrenNode(n, ast.NodeArray, "")
	}
	return c.convert(n)
}

func (c *converter) massTargets(n *sitter.Node) *ast.Node {
	out := c.node(n, ast.NodeMassTargets, "")
	for j := uint(0); j < n.NamedChildCount(); j++ {
		if target := c.assignTarget(n.NamedChild(j)); target != nil {
			out.Children = append(out.Children, target)
		}
	}
	return out
}

// assignTarget converts a bare assignment target (no value child); used
// for mass-assignment lists and operator-assignment left sides.
func (c *converter) assignTarget(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "identifier":
		return c.node(n, ast.NodeLocalAssign, c.text(n))
	case "instance_variable":
		return c.node(n, ast.NodeIvarAssign, c.text(n))
	case "class_variable":
		return c.node(n, ast.NodeCvarAssign, c.text(n))
	case "global_variable":
		return c.node(n, ast.NodeGvarAssign, c.text(n))
	case "constant":
		return c.node(n, ast.NodeConstAssign, c.text(n))
	case "rest_assignment", "splat_argument":
		if n.NamedChildCount() > 0 {
			return c.assignTarget(n.NamedChild(0))
		}
		return nil
	default:
		return nil
	}
}

func (c *converter) operatorAssignment(n *sitter.Node) *ast.Node {
	target := c.assignTarget(n.ChildByFieldName("left"))
	right := c.convert(n.ChildByFieldName("right"))
	if target == nil {
		return c.node(n, ast.NodeOther, "operator_assignment",
			c.convert(n.ChildByFieldName("left")), right)
	}

	var t ast.NodeType
	switch c.operatorText(n) {
	case "||=":
		t = ast.NodeOrAssign
	case "&&=":
		t = ast.NodeAndAssign
	default:
		t = ast.NodeOpAssign
	}
	return c.node(n, t, "", target, right)
}

func (c *converter) operatorText(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return c.text(op)
	}
	for j := uint(0); j < n.ChildCount(); j++ {
		child := n.Child(j)
		if !child.IsNamed() && strings.HasSuffix(c.text(child), "=") {
			return c.text(child)
		}
	}
	return ""
}

func (c *converter) params(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	out := c.node(n, ast.NodeArgs, "")
	for j := uint(0); j < n.NamedChildCount(); j++ {
		child := n.NamedChild(j)
		var conv *ast.Node
		switch child.Kind() {
		case "identifier":
			conv = c.node(child, ast.NodeArg, c.text(child))
		case "optional_parameter":
			conv = c.node(child, ast.NodeOptArg,
				c.fieldText(child, "name"), c.convert(child.ChildByFieldName("value")))
		case "keyword_parameter":
			conv = c.node(child, ast.NodeKwOptArg,
				c.fieldText(child, "name"), c.convert(child.ChildByFieldName("value")))
		case "splat_parameter", "hash_splat_parameter":
			conv = c.node(child, ast.NodeRestArg, c.fieldText(child, "name"))
		case "block_parameter":
			conv = c.node(child, ast.NodeBlockArg, c.fieldText(child, "name"))
		default:
			conv = c.convert(child)
		}
		if conv != nil {
			out.Children = append(out.Children, conv)
		}
	}
	return out
}

func (c *converter) fieldText(n *sitter.Node, field string) string {
	if f := n.ChildByFieldName(field); f != nil {
		return c.text(f)
	}
	return ""
}

func (c *converter) pairKey(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == "hash_key_symbol" {
		return c.node(n, ast.NodeSym, c.text(n))
	}
	return c.convert(n)
}

func (c *converter) aliasName(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "global_variable":
		return c.node(n, ast.NodeGvar, c.text(n))
	default:
		return c.node(n, ast.NodeSym, c.methodName(n))
	}
}

func (c *converter) methodName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	text := c.text(n)
	if n.Kind() == "setter" && !strings.HasSuffix(text, "=") {
		return text + "="
	}
	if n.Kind() == "simple_symbol" {
		return strings.TrimPrefix(text, ":")
	}
	return text
}

func constName(n *ast.Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}

// prepend keeps fixed child slots (which may be nil) ahead of a body list.
func prepend(head []*ast.Node, body []*ast.Node) []*ast.Node {
	return append(head, body...)
}

func stringContent(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'':
			return s[1 : len(s)-1]
		}
	}
	return s
}

func symbolContent(s string) string {
	s = strings.TrimPrefix(s, ":")
	return stringContent(s)
}
