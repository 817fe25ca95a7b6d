package interp_test

import (
	"testing"

	"rubyscope/internal/ast"
	"rubyscope/internal/core/errors"
	"rubyscope/internal/definition"
	"rubyscope/internal/interp"
	"rubyscope/internal/stddb"
)

func run(t *testing.T, trees ...*ast.Node) *interp.Result {
	t.Helper()
	i := interp.New(interp.Options{Source: stddb.NewCoreSource()})
	result, err := i.Run(trees...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

// n is shorthand for building test trees.
func n(t ast.NodeType, name string, children ...*ast.Node) *ast.Node {
	return ast.New(t, name, children...)
}

func TestLocalAssignmentAndRead(t *testing.T) {
	// x = 10; x
	result := run(t,
		n(ast.NodeBegin, "",
			n(ast.NodeLocalAssign, "x", n(ast.NodeInt, "10")),
			n(ast.NodeLvar, "x"),
		))

	x, ok := result.Root().Lookup(definition.KindLocalVariable, "x")
	if !ok {
		t.Fatal("x not defined at top level")
	}
	if x.References != 1 {
		t.Fatalf("x.References = %d, want 1", x.References)
	}
	if x.Value == nil || x.Value.Name != "10" {
		t.Fatalf("x.Value = %v", x.Value)
	}
	if len(x.Value.Parents()) == 0 || x.Value.Parents()[0].Name != "Integer" {
		t.Fatal("integer literal must be typed as Integer")
	}
}

func TestClassWithMethodAndDefaultSuperclass(t *testing.T) {
	// class Foo; def bar; end; end
	defNode := n(ast.NodeDef, "bar", nil)
	classNode := n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil, defNode)
	result := run(t, n(ast.NodeBegin, "", classNode))

	foo, ok := result.LookupConstant("Foo")
	if !ok {
		t.Fatal("Foo not defined")
	}
	if foo.Kind != definition.KindClass {
		t.Fatalf("Foo kind = %s", foo.Kind)
	}
	if len(foo.Parents()) == 0 || foo.Parents()[0].Name != "Object" {
		t.Fatal("missing superclass must default to Object")
	}

	bar, ok := foo.LookupMethod(definition.InstanceCall, "bar")
	if !ok {
		t.Fatal("Foo#bar not defined")
	}
	if bar.Visibility != definition.Public {
		t.Fatalf("bar visibility = %s", bar.Visibility)
	}

	if def, ok := result.Association(defNode); !ok || def != bar {
		t.Fatal("def node must associate with the method definition")
	}
	if def, ok := result.Association(classNode); !ok || def != foo {
		t.Fatal("class node must associate with the class definition")
	}
}

func TestExplicitSuperclass(t *testing.T) {
	// class A; end; class B < A; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "A"), nil),
		n(ast.NodeClass, "", n(ast.NodeConst, "B"), n(ast.NodeConst, "A")),
	))

	a, _ := result.LookupConstant("A")
	b, _ := result.LookupConstant("B")
	if b == nil || a == nil {
		t.Fatal("classes missing")
	}
	if len(b.Parents()) == 0 || b.Parents()[0] != a {
		t.Fatal("B must inherit from A")
	}
}

func TestReopeningSharesDefinition(t *testing.T) {
	first := n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
		n(ast.NodeDef, "one", nil))
	second := n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
		n(ast.NodeDef, "two", nil))
	result := run(t, n(ast.NodeBegin, "", first, second))

	foo, _ := result.LookupConstant("Foo")
	if _, ok := foo.LookupMethod(definition.InstanceCall, "one"); !ok {
		t.Fatal("method from first body missing")
	}
	if _, ok := foo.LookupMethod(definition.InstanceCall, "two"); !ok {
		t.Fatal("method from reopened body missing")
	}

	d1, _ := result.Association(first)
	d2, _ := result.Association(second)
	if d1 == nil || d1 != d2 {
		t.Fatal("reopening must reuse the existing definition")
	}
}

func TestVisibilityModifiers(t *testing.T) {
	// class Foo; private; def secret; end; public; def open; end; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeSend, "private", nil),
			n(ast.NodeDef, "secret", nil),
			n(ast.NodeSend, "public", nil),
			n(ast.NodeDef, "open", nil),
		)))

	foo, _ := result.LookupConstant("Foo")
	secret, _ := foo.LookupMethod(definition.InstanceCall, "secret")
	open, _ := foo.LookupMethod(definition.InstanceCall, "open")
	if secret.Visibility != definition.Private {
		t.Fatalf("secret visibility = %s", secret.Visibility)
	}
	if open.Visibility != definition.Public {
		t.Fatalf("open visibility = %s", open.Visibility)
	}
}

func TestVisibilityWithArguments(t *testing.T) {
	// class Foo; def late; end; private :late; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeDef, "late", nil),
			n(ast.NodeSend, "private", nil, n(ast.NodeSym, "late")),
		)))

	foo, _ := result.LookupConstant("Foo")
	late, _ := foo.LookupMethod(definition.InstanceCall, "late")
	if late.Visibility != definition.Private {
		t.Fatalf("late visibility = %s", late.Visibility)
	}
}

func TestVisibilityResetsPerScope(t *testing.T) {
	// class Foo; private; class Bar; def inner; end; end; def outer; end; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeSend, "private", nil),
			n(ast.NodeClass, "", n(ast.NodeConst, "Bar"), nil,
				n(ast.NodeDef, "inner", nil)),
			n(ast.NodeDef, "outer", nil),
		)))

	foo, _ := result.LookupConstant("Foo")
	bar, _ := foo.LookupConstant("Bar")
	inner, _ := bar.LookupMethod(definition.InstanceCall, "inner")
	if inner.Visibility != definition.Public {
		t.Fatal("nested scope must start public")
	}
	outer, _ := foo.LookupMethod(definition.InstanceCall, "outer")
	if outer.Visibility != definition.Private {
		t.Fatal("outer scope's private state must survive the nested class")
	}
}

func TestIncludeCopiesMethodsAndConstants(t *testing.T) {
	// module Greeter; GREETING = "hello"; def greet; end; end
	// class Foo; include Greeter; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeModule, "", n(ast.NodeConst, "Greeter"),
			n(ast.NodeConstAssign, "GREETING", nil, n(ast.NodeStr, "hello")),
			n(ast.NodeDef, "greet", nil),
		),
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeSend, "include", nil, n(ast.NodeConst, "Greeter")),
		)))

	foo, _ := result.LookupConstant("Foo")
	if _, ok := foo.LookupLocal(definition.KindInstanceMethod, "greet"); !ok {
		t.Fatal("include must copy instance methods")
	}
	if _, ok := foo.LookupLocal(definition.KindConstant, "GREETING"); !ok {
		t.Fatal("include must copy constants")
	}
}

func TestExtendCopiesSingletonMethods(t *testing.T) {
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeModule, "", n(ast.NodeConst, "Helpers"),
			n(ast.NodeSClass, "", n(ast.NodeSelf, "self"),
				n(ast.NodeDef, "assist", nil)),
		),
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeSend, "extend", nil, n(ast.NodeConst, "Helpers")),
		)))

	foo, _ := result.LookupConstant("Foo")
	if _, ok := foo.LookupLocal(definition.KindMethod, "assist"); !ok {
		t.Fatal("extend must copy singleton methods")
	}
}

func TestOrAssignOnlyWhenAbsent(t *testing.T) {
	// a ||= 1; a ||= 2
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeOrAssign, "", n(ast.NodeLocalAssign, "a"), n(ast.NodeInt, "1")),
		n(ast.NodeOrAssign, "", n(ast.NodeLocalAssign, "a"), n(ast.NodeInt, "2")),
	))

	a, ok := result.Root().Lookup(definition.KindLocalVariable, "a")
	if !ok {
		t.Fatal("a not defined")
	}
	if a.Value == nil || a.Value.Name != "1" {
		t.Fatalf("a.Value = %v, second ||= must not overwrite", a.Value)
	}
	if a.References != 1 {
		t.Fatalf("a.References = %d, skipped ||= still reads", a.References)
	}
}

func TestAndAssignOnlyWhenPresent(t *testing.T) {
	// b &&= 1  (b unset, no effect); c = 5; c &&= 7
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeAndAssign, "", n(ast.NodeLocalAssign, "b"), n(ast.NodeInt, "1")),
		n(ast.NodeLocalAssign, "c", n(ast.NodeInt, "5")),
		n(ast.NodeAndAssign, "", n(ast.NodeLocalAssign, "c"), n(ast.NodeInt, "7")),
	))

	if _, ok := result.Root().Lookup(definition.KindLocalVariable, "b"); ok {
		t.Fatal("&&= on an unset variable must not define it")
	}
	c, _ := result.Root().Lookup(definition.KindLocalVariable, "c")
	if c == nil || c.Value == nil || c.Value.Name != "7" {
		t.Fatalf("c = %v, &&= on a set variable must assign", c)
	}
}

func TestOpAssignReadsThenAssigns(t *testing.T) {
	// x = 1; x += 2
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeLocalAssign, "x", n(ast.NodeInt, "1")),
		n(ast.NodeOpAssign, "", n(ast.NodeLocalAssign, "x"), n(ast.NodeInt, "2")),
	))

	x, _ := result.Root().Lookup(definition.KindLocalVariable, "x")
	if x == nil || x.Value == nil || x.Value.Name != "2" {
		t.Fatalf("x = %v", x)
	}
}

func TestUnresolvableConstantPathIsSilent(t *testing.T) {
	// Unknown::Deep::Path
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeConst, "Path",
			n(ast.NodeConst, "Deep",
				n(ast.NodeConst, "Unknown"))),
	))

	for _, name := range []string{"Unknown", "Deep", "Path"} {
		if _, ok := result.LookupConstant(name); ok {
			t.Fatalf("unresolved path must not create %q", name)
		}
	}
}

func TestMethodExportsObjectStateNotLocals(t *testing.T) {
	// class Foo; def bar; @count = 1; tmp = 2; end; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeDef, "bar", nil,
				n(ast.NodeIvarAssign, "@count", n(ast.NodeInt, "1")),
				n(ast.NodeLocalAssign, "tmp", n(ast.NodeInt, "2")),
			),
		)))

	foo, _ := result.LookupConstant("Foo")
	if _, ok := foo.LookupLocal(definition.KindInstanceVariable, "@count"); !ok {
		t.Fatal("instance variable must be exported to the class scope")
	}
	if _, ok := foo.LookupLocal(definition.KindLocalVariable, "tmp"); ok {
		t.Fatal("method locals must stay private")
	}

	bar, _ := foo.LookupMethod(definition.InstanceCall, "bar")
	if _, ok := bar.LookupLocal(definition.KindLocalVariable, "tmp"); !ok {
		t.Fatal("local must exist inside the method")
	}
}

func TestGlobalsLiveOnRoot(t *testing.T) {
	// class Foo; def bar; $flag = 1; end; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeDef, "bar", nil,
				n(ast.NodeGvarAssign, "$flag", n(ast.NodeInt, "1"))),
		)))

	if _, ok := result.Root().LookupLocal(definition.KindGlobalVariable, "$flag"); !ok {
		t.Fatal("globals must register on the root scope")
	}
}

func TestSingletonMethodOnSelf(t *testing.T) {
	// class Foo; def self.create; end; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeDefS, "create", n(ast.NodeSelf, "self"), nil),
		)))

	foo, _ := result.LookupConstant("Foo")
	if _, ok := foo.LookupMethod(definition.SingletonCall, "create"); !ok {
		t.Fatal("def self.create must register a singleton method on Foo")
	}
	if _, ok := foo.LookupLocal(definition.KindInstanceMethod, "create"); ok {
		t.Fatal("create must not appear as an instance method")
	}
}

func TestSingletonClassBody(t *testing.T) {
	// class Foo; class << self; def helper; end; end; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeSClass, "", n(ast.NodeSelf, "self"),
				n(ast.NodeDef, "helper", nil)),
		)))

	foo, _ := result.LookupConstant("Foo")
	if _, ok := foo.LookupMethod(definition.SingletonCall, "helper"); !ok {
		t.Fatal("class << self body must define singleton methods")
	}
}

func TestNewInfersInstance(t *testing.T) {
	// class Foo; end; x = Foo.new
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil),
		n(ast.NodeLocalAssign, "x",
			n(ast.NodeSend, "new", n(ast.NodeConst, "Foo"))),
	))

	foo, _ := result.LookupConstant("Foo")
	x, _ := result.Root().Lookup(definition.KindLocalVariable, "x")
	if x == nil || x.Value == nil {
		t.Fatal("x has no value")
	}
	if x.Value.Instance != definition.InstanceType {
		t.Fatal("Foo.new must produce an instance-typed value")
	}
	if len(x.Value.Parents()) == 0 || x.Value.Parents()[0] != foo {
		t.Fatal("instance must point at its class")
	}
}

func TestMethodReturnTypeFromDatabase(t *testing.T) {
	// len = "hi".length
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeLocalAssign, "len",
			n(ast.NodeSend, "length", n(ast.NodeStr, "hi"))),
	))

	lenVar, _ := result.Root().Lookup(definition.KindLocalVariable, "len")
	if lenVar == nil || lenVar.Value == nil {
		t.Fatal("len has no inferred value")
	}
	if lenVar.Value.Name != "Integer" {
		t.Fatalf("len inferred as %q, want Integer", lenVar.Value.Name)
	}
}

func TestDocTagsTypeMethods(t *testing.T) {
	// # @param num Integer
	// # @return Float
	// def half(num); end
	defNode := n(ast.NodeDef, "half",
		n(ast.NodeArgs, "", n(ast.NodeArg, "num")))
	defNode.Comments = []string{
		"# @param num Integer",
		"# @return Float",
	}
	result := run(t, n(ast.NodeBegin, "", defNode))

	half, ok := result.Root().LookupMethod(definition.InstanceCall, "half")
	if !ok {
		t.Fatal("half not defined")
	}
	if half.Value == nil || half.Value.Name != "Float" {
		t.Fatalf("return hint = %v", half.Value)
	}
	if len(half.Parameters) != 1 {
		t.Fatalf("parameters = %v", half.Parameters)
	}
	num := half.Parameters[0]
	found := false
	for _, p := range num.Parents() {
		if p.Name == "Integer" {
			found = true
		}
	}
	if !found {
		t.Fatal("@param hint must parent the parameter on Integer")
	}
}

func TestMassAssignPositional(t *testing.T) {
	// a, b = 1, 2
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeMassAssign, "",
			n(ast.NodeMassTargets, "",
				n(ast.NodeLocalAssign, "a"),
				n(ast.NodeLocalAssign, "b")),
			n(ast.NodeArray, "", n(ast.NodeInt, "1"), n(ast.NodeInt, "2"))),
	))

	a, _ := result.Root().Lookup(definition.KindLocalVariable, "a")
	b, _ := result.Root().Lookup(definition.KindLocalVariable, "b")
	if a == nil || a.Value == nil || a.Value.Name != "1" {
		t.Fatalf("a = %v", a)
	}
	if b == nil || b.Value == nil || b.Value.Name != "2" {
		t.Fatalf("b = %v", b)
	}
}

func TestMassAssignScalarRHS(t *testing.T) {
	// a, b = 9
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeMassAssign, "",
			n(ast.NodeMassTargets, "",
				n(ast.NodeLocalAssign, "a"),
				n(ast.NodeLocalAssign, "b")),
			n(ast.NodeInt, "9")),
	))

	a, _ := result.Root().Lookup(definition.KindLocalVariable, "a")
	if a == nil || a.Value == nil || a.Value.Name != "9" {
		t.Fatalf("a = %v, first target takes the whole value", a)
	}
	b, _ := result.Root().Lookup(definition.KindLocalVariable, "b")
	if b == nil || b.Value != nil {
		t.Fatalf("b = %v, trailing target gets no value", b)
	}
}

func TestAliasInstanceMethod(t *testing.T) {
	// class Foo; def bar; end; alias baz bar; end
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil,
			n(ast.NodeDef, "bar", nil),
			n(ast.NodeAlias, "", n(ast.NodeSym, "baz"), n(ast.NodeSym, "bar")),
		)))

	foo, _ := result.LookupConstant("Foo")
	bar, _ := foo.LookupMethod(definition.InstanceCall, "bar")
	baz, ok := foo.LookupMethod(definition.InstanceCall, "baz")
	if !ok || baz != bar {
		t.Fatal("alias must register the same method definition under the new name")
	}
}

func TestAliasMissingSourceIsSilent(t *testing.T) {
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeAlias, "", n(ast.NodeSym, "ghost"), n(ast.NodeSym, "phantom")),
	))
	if _, ok := result.Root().LookupMethod(definition.InstanceCall, "ghost"); ok {
		t.Fatal("alias of a missing method must create nothing")
	}
}

func TestIndexAssignRecordsMember(t *testing.T) {
	// arr = []; arr[0] = 5
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeLocalAssign, "arr", n(ast.NodeArray, "")),
		n(ast.NodeSend, "[]=",
			n(ast.NodeLvar, "arr"),
			n(ast.NodeInt, "0"),
			n(ast.NodeInt, "5")),
	))

	arr, _ := result.Root().Lookup(definition.KindLocalVariable, "arr")
	member, ok := arr.Value.LookupLocal(definition.KindMember, "0")
	if !ok {
		t.Fatal("index assignment must record a member on the receiver")
	}
	if member.Value == nil || member.Value.Name != "5" {
		t.Fatalf("member value = %v", member.Value)
	}
}

func TestHashLiteralMembers(t *testing.T) {
	// h = { name: "x" }
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeLocalAssign, "h",
			n(ast.NodeHash, "",
				n(ast.NodePair, "", n(ast.NodeSym, "name"), n(ast.NodeStr, "x")))),
	))

	h, _ := result.Root().Lookup(definition.KindLocalVariable, "h")
	member, ok := h.Value.LookupLocal(definition.KindMember, "name")
	if !ok {
		t.Fatal("hash member missing")
	}
	if member.Value == nil || member.Value.Name != "x" {
		t.Fatalf("member value = %v", member.Value)
	}
}

func TestBlockParamsDoNotLeak(t *testing.T) {
	// [1].each do |item|; end
	blockNode := n(ast.NodeBlock, "",
		n(ast.NodeSend, "each", n(ast.NodeArray, "", n(ast.NodeInt, "1"))),
		n(ast.NodeArgs, "", n(ast.NodeArg, "item")))
	result := run(t, n(ast.NodeBegin, "", blockNode))

	if _, ok := result.Root().LookupLocal(definition.KindLocalVariable, "item"); ok {
		t.Fatal("block parameter leaked into the enclosing scope")
	}
	block, ok := result.Association(blockNode)
	if !ok || block.Kind != definition.KindBlock {
		t.Fatal("block node must associate with a block definition")
	}
	if _, ok := block.LookupLocal(definition.KindLocalVariable, "item"); !ok {
		t.Fatal("block parameter must exist on the block scope")
	}
}

func TestUnresolvedSendIsSilent(t *testing.T) {
	// mystery_call(42)
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeSend, "mystery_call", nil, n(ast.NodeInt, "42")),
	))
	if result == nil {
		t.Fatal("run must succeed despite unresolved calls")
	}
}

func TestNestedModulesAndQualifiedLookup(t *testing.T) {
	// module Outer; module Inner; VALUE = 1; end; end; Outer::Inner::VALUE
	readNode := n(ast.NodeConst, "VALUE",
		n(ast.NodeConst, "Inner",
			n(ast.NodeConst, "Outer")))
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeModule, "", n(ast.NodeConst, "Outer"),
			n(ast.NodeModule, "", n(ast.NodeConst, "Inner"),
				n(ast.NodeConstAssign, "VALUE", nil, n(ast.NodeInt, "1")))),
		readNode,
	))

	value, ok := result.LookupConstant("Outer::Inner::VALUE")
	if !ok {
		t.Fatal("qualified constant not reachable")
	}
	if value.References != 1 {
		t.Fatalf("VALUE.References = %d, want 1", value.References)
	}
	if def, ok := result.Association(readNode); !ok || def != value {
		t.Fatal("const read must associate with the resolved definition")
	}
}

func TestQualifiedConstantAssignment(t *testing.T) {
	// module Config; end; Config::TIMEOUT = 30
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeModule, "", n(ast.NodeConst, "Config")),
		n(ast.NodeConstAssign, "TIMEOUT", n(ast.NodeConst, "Config"), n(ast.NodeInt, "30")),
	))

	timeout, ok := result.LookupConstant("Config::TIMEOUT")
	if !ok {
		t.Fatal("qualified assignment must land in the named scope")
	}
	if timeout.Value == nil || timeout.Value.Name != "30" {
		t.Fatalf("TIMEOUT value = %v", timeout.Value)
	}
	if _, ok := result.Root().LookupLocal(definition.KindConstant, "TIMEOUT"); ok {
		t.Fatal("qualified constant must not leak to root")
	}
}

func TestUnresolvableAssignmentReceiverSkips(t *testing.T) {
	// Missing::X = 1
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeConstAssign, "X", n(ast.NodeConst, "Missing"), n(ast.NodeInt, "1")),
	))
	if _, ok := result.LookupConstant("X"); ok {
		t.Fatal("assignment with an unresolvable receiver must be skipped")
	}
}

func TestResultIsFrozen(t *testing.T) {
	result := run(t, n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Foo"), nil),
	))

	root := result.Root()
	if !root.Frozen() {
		t.Fatal("root must be frozen after the run")
	}
	foo, _ := result.LookupConstant("Foo")
	if !foo.Frozen() {
		t.Fatal("reachable definitions must be frozen")
	}

	before := foo.References
	foo.Reference()
	if foo.References != before {
		t.Fatal("reference counting must stop at freeze time")
	}
}

func TestInterpreterReuseIsAnError(t *testing.T) {
	i := interp.New(interp.Options{Source: stddb.NewCoreSource()})
	if _, err := i.Run(n(ast.NodeBegin, "")); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	_, err := i.Run(n(ast.NodeBegin, ""))
	if err == nil || !errors.IsInvariant(err) {
		t.Fatalf("second Run = %v, want invariant violation", err)
	}
}

func TestMultipleTreesShareOneGraph(t *testing.T) {
	// file one defines the class, file two reopens it
	one := n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Shared"), nil,
			n(ast.NodeDef, "from_one", nil)))
	two := n(ast.NodeBegin, "",
		n(ast.NodeClass, "", n(ast.NodeConst, "Shared"), nil,
			n(ast.NodeDef, "from_two", nil)))
	result := run(t, one, two)

	shared, _ := result.LookupConstant("Shared")
	for _, name := range []string{"from_one", "from_two"} {
		if _, ok := shared.LookupMethod(definition.InstanceCall, name); !ok {
			t.Fatalf("method %s missing from the merged definition", name)
		}
	}
}

func TestRunsAreDeterministic(t *testing.T) {
	build := func() *ast.Node {
		return n(ast.NodeBegin, "",
			n(ast.NodeClass, "", n(ast.NodeConst, "Zed"), nil,
				n(ast.NodeDef, "a", nil),
				n(ast.NodeDef, "b", nil),
				n(ast.NodeConstAssign, "V", nil, n(ast.NodeInt, "1"))),
			n(ast.NodeModule, "", n(ast.NodeConst, "Util")),
		)
	}

	names := func(result *interp.Result) []string {
		var out []string
		zed, _ := result.LookupConstant("Zed")
		zed.EachChild(func(kind definition.Kind, name string, def *definition.Definition) {
			out = append(out, kind.String()+" "+name)
		})
		return out
	}

	first := names(run(t, build()))
	second := names(run(t, build()))
	if len(first) != len(second) {
		t.Fatalf("runs differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("runs differ at %d: %v vs %v", i, first, second)
		}
	}
}
