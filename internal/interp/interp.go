// Package interp implements the abstract interpreter: a single-pass,
// depth-first tree walk that builds the definition graph. It emulates just
// enough of Ruby's runtime semantics (constant resolution, inheritance,
// assignment, scoping, visibility, mixins, aliasing) to produce a
// consistent model without executing code.
package interp

import (
	"log/slog"

	"rubyscope/internal/ast"
	"rubyscope/internal/core/errors"
	"rubyscope/internal/definition"
	"rubyscope/internal/doctag"
	"rubyscope/internal/observability"
	"rubyscope/internal/resolver"
	"rubyscope/internal/stddb"
)

// Interpreter owns all walk state. Create one per analysis run; Run may be
// called once. Nothing here is shared until the result is frozen.
type Interpreter struct {
	root   *definition.Definition
	loader *resolver.Loader
	res    *resolver.Resolver
	log    *slog.Logger

	scopes  []*definition.Definition
	values  definition.NestedStack
	targets definition.NestedStack
	assoc   map[*ast.Node]*definition.Definition

	visibility definition.Visibility
	callType   definition.CallType
	methodTags []doctag.Tags

	ran bool
}

// Options configures a run. Source may be nil, in which case no external
// constants resolve.
type Options struct {
	Source stddb.Source
	Logger *slog.Logger
}

func New(opts Options) *Interpreter {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	root := definition.New(definition.KindRoot, "root")
	loader := resolver.NewLoader(opts.Source, root, log)

	// Top-level code runs as an instance of Object ("main"); hanging Object
	// off the root makes Kernel methods resolvable from top-level sends.
	if object, ok := loader.Materialize("Object"); ok {
		root.AddParent(object)
		root.Add(definition.KindKeyword, "self",
			definition.NewInstance(definition.KindKeyword, "self", object))
	} else {
		root.Add(definition.KindKeyword, "self",
			definition.New(definition.KindKeyword, "self"))
	}

	return &Interpreter{
		root:   root,
		loader: loader,
		res:    resolver.New(loader, log),
		log:    log,
		assoc:  make(map[*ast.Node]*definition.Definition),
	}
}

// LoaderErr exposes any definition database failure encountered; such
// failures degrade resolution but do not abort the walk.
func (i *Interpreter) LoaderErr() error { return i.loader.Err() }

// Run preloads every constant referenced anywhere in the trees, performs
// the single walk, and freezes the graph. The returned error is always an
// internal invariant violation, never a problem with the analyzed code.
func (i *Interpreter) Run(trees ...*ast.Node) (*Result, error) {
	if i.ran {
		return nil, errors.Invariant("interpreter reuse: Run called twice")
	}
	i.ran = true

	for _, tree := range trees {
		i.res.Preload(tree)
	}

	i.scopes = []*definition.Definition{i.root}
	for _, tree := range trees {
		if err := i.walk(tree); err != nil {
			return nil, err
		}
	}

	if len(i.scopes) != 1 {
		return nil, errors.Invariant("scope stack depth %d after walk, want 1", len(i.scopes))
	}
	if !i.values.Empty() || !i.targets.Empty() {
		return nil, errors.Invariant("unbalanced value stacks after walk")
	}

	i.root.Freeze()
	for _, def := range i.assoc {
		def.Freeze()
	}

	return &Result{root: i.root, associations: i.assoc}, nil
}

// scope returns the current (innermost) scope.
func (i *Interpreter) scope() *definition.Definition {
	return i.scopes[len(i.scopes)-1]
}

func (i *Interpreter) pushScope(def *definition.Definition) {
	i.scopes = append(i.scopes, def)
}

func (i *Interpreter) popScope() error {
	if len(i.scopes) <= 1 {
		return errors.Invariant("pop on empty scope stack")
	}
	i.scopes = i.scopes[:len(i.scopes)-1]
	return nil
}

// walk dispatches one node. The switch is exhaustive over NodeType; an
// unknown type means the parser and interpreter disagree, which is a bug.
func (i *Interpreter) walk(node *ast.Node) error {
	if node == nil {
		return nil
	}
	switch node.Type {
	case ast.NodeBegin, ast.NodeOther, ast.NodeArgs, ast.NodeMassTargets:
		return i.walkChildren(node)
	case ast.NodeClass:
		return i.onClass(node)
	case ast.NodeModule:
		return i.onModule(node)
	case ast.NodeSClass:
		return i.onSClass(node)
	case ast.NodeDef:
		return i.onDef(node)
	case ast.NodeDefS:
		return i.onDefS(node)
	case ast.NodeBlock:
		return i.onBlock(node)
	case ast.NodeSend:
		return i.onSend(node)
	case ast.NodeLocalAssign:
		return i.onAssign(node, definition.KindLocalVariable)
	case ast.NodeIvarAssign:
		return i.onAssign(node, definition.KindInstanceVariable)
	case ast.NodeCvarAssign:
		return i.onAssign(node, definition.KindClassVariable)
	case ast.NodeGvarAssign:
		return i.onAssign(node, definition.KindGlobalVariable)
	case ast.NodeConstAssign:
		return i.onConstAssign(node)
	case ast.NodeMassAssign:
		return i.onMassAssign(node)
	case ast.NodeOrAssign:
		return i.onCondAssign(node, true)
	case ast.NodeAndAssign:
		return i.onCondAssign(node, false)
	case ast.NodeOpAssign:
		return i.onOpAssign(node)
	case ast.NodeInt:
		return i.onPrimitive(node, "Integer")
	case ast.NodeFloat:
		return i.onPrimitive(node, "Float")
	case ast.NodeStr:
		return i.onPrimitive(node, "String")
	case ast.NodeSym:
		return i.onPrimitive(node, "Symbol")
	case ast.NodeArray:
		return i.onArray(node)
	case ast.NodeHash:
		return i.onHash(node)
	case ast.NodePair:
		return i.onPair(node)
	case ast.NodeSelf:
		return i.onSelf(node)
	case ast.NodeConst:
		return i.onConstRead(node)
	case ast.NodeLvar:
		return i.onVarRead(node, definition.KindLocalVariable)
	case ast.NodeIvar:
		return i.onVarRead(node, definition.KindInstanceVariable)
	case ast.NodeCvar:
		return i.onVarRead(node, definition.KindClassVariable)
	case ast.NodeGvar:
		return i.onVarRead(node, definition.KindGlobalVariable)
	case ast.NodeArg, ast.NodeOptArg, ast.NodeRestArg, ast.NodeBlockArg, ast.NodeKwOptArg:
		return i.onParam(node)
	case ast.NodeAlias:
		return i.onAlias(node)
	case ast.NodePreExec, ast.NodePostExec:
		i.log.Debug("BEGIN/END block treated as advisory", "line", node.Loc.Line)
		return i.walkChildren(node)
	default:
		return errors.Invariant("no handler for node type %s at %s:%d",
			node.Type, node.Loc.File, node.Loc.Line)
	}
}

func (i *Interpreter) walkChildren(node *ast.Node) error {
	for _, c := range node.Children {
		if err := i.walk(c); err != nil {
			return err
		}
	}
	return nil
}

// evalFrame walks the given nodes inside a fresh value frame and returns
// the collected values.
func (i *Interpreter) evalFrame(nodes ...*ast.Node) ([]*definition.Definition, error) {
	i.values.AddFrame()
	for _, n := range nodes {
		if err := i.walk(n); err != nil {
			// Keep the stack balanced on early-return paths.
			i.values.Pop() //nolint:errcheck
			return nil, err
		}
	}
	return i.values.Pop()
}

func lastValue(frame []*definition.Definition) *definition.Definition {
	if len(frame) == 0 {
		return nil
	}
	return frame[len(frame)-1]
}

// coreClass resolves a class by bare name through the current scope chain
// and then the definition database.
func (i *Interpreter) coreClass(name string) *definition.Definition {
	for n := len(i.scopes) - 1; n >= 0; n-- {
		if def, ok := i.scopes[n].LookupConstant(name); ok {
			return def
		}
	}
	if def, ok := i.loader.Materialize(name); ok {
		return def
	}
	return nil
}

// deref unwraps keyword-self definitions to the scope they stand for.
func deref(def *definition.Definition) *definition.Definition {
	if def != nil && def.Kind == definition.KindKeyword && len(def.Parents()) > 0 {
		return def.Parents()[0]
	}
	return def
}

func built(kind definition.Kind) {
	observability.DefinitionsBuilt.WithLabelValues(kind.String()).Inc()
}
