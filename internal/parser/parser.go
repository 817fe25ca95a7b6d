// Package parser turns Ruby source into the analyzer's syntax tree. It
// wraps tree-sitter with the Ruby grammar and converts the concrete parse
// tree into internal/ast nodes.
package parser

import (
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"rubyscope/internal/ast"
	"rubyscope/internal/core/errors"
	"rubyscope/internal/observability"
)

type Parser struct {
	language *sitter.Language
}

func New() *Parser {
	return &Parser{language: sitter.NewLanguage(tree_sitter_ruby.Language())}
}

// ParseSource parses one file's content into an ast tree. Syntax errors do
// not fail the parse: tree-sitter recovers and the unrecognized parts
// become opaque nodes the interpreter walks through.
func (p *Parser) ParseSource(path string, content []byte) (*ast.Node, error) {
	start := time.Now()

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(p.language); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "set ruby grammar")
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.Newf(errors.CodeParse, "parse failed for %s", path)
	}
	defer tree.Close()

	conv := &converter{source: content, path: path}
	root := conv.statementsNode(ast.NodeBegin, tree.RootNode())

	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	return root, nil
}
