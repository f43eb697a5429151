// Package scope maps a line of a Python source file to the dotted name of
// the class/function definitions that enclose it.
package scope

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSourceNotFound is returned when the file a finding points at does not
// exist. It is distinct from "no enclosing scope", which is an empty path.
var ErrSourceNotFound = errors.New("source file not found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Resolve returns the scope path enclosing line (1-based) in the file at
// path, e.g. "Handler.get". Module-level lines and files that do not parse
// yield "". Only I/O failures are reported as errors.
func Resolve(path string, line int) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return ResolveSource(src, line), nil
}

// ResolveSource is Resolve on in-memory source.
func ResolveSource(src []byte, line int) string {
	src = bytes.TrimPrefix(src, utf8BOM)
	if !utf8.Valid(src) {
		return ""
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return ""
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() || hasPython2Statement(root) {
		return ""
	}
	return strings.Join(enclosing(root, src, line), ".")
}

// python2Statements are accepted by the grammar but rejected by a Python 3
// parser, so a file containing one does not parse.
var python2Statements = map[string]bool{
	"print_statement": true,
	"exec_statement":  true,
}

func hasPython2Statement(n *sitter.Node) bool {
	if python2Statements[n.Type()] {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if hasPython2Statement(n.NamedChild(i)) {
			return true
		}
	}
	return false
}

// enclosing descends from n into the first body statement whose line range
// contains line and returns the definition names met on the way down.
func enclosing(n *sitter.Node, src []byte, line int) []string {
	for _, child := range bodySegments(n) {
		child = unwrapDecorated(child)
		start, end := lineRange(child)
		if line < start || line > end {
			continue
		}
		inner := enclosing(child, src, line)
		if name := definitionName(child, src); name != "" {
			return append([]string{name}, inner...)
		}
		return inner
	}
	return nil
}

// bodySegments lists the statements a node owns in source order. For try
// statements the except clauses and the else/finally statements count as
// further body segments.
func bodySegments(n *sitter.Node) []*sitter.Node {
	switch n.Type() {
	case "module", "block":
		return statements(n)
	case "try_statement":
		segs := statements(n.ChildByFieldName("body"))
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "except_clause", "except_group_clause":
				segs = append(segs, c)
			case "else_clause", "finally_clause":
				segs = append(segs, statements(clauseBlock(c))...)
			}
		}
		return segs
	case "except_clause", "except_group_clause":
		return statements(clauseBlock(n))
	case "if_statement":
		// elif/else branches are not searched.
		return statements(n.ChildByFieldName("consequence"))
	case "match_statement":
		return nil
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return statements(body)
	}
	return nil
}

func statements(block *sitter.Node) []*sitter.Node {
	if block == nil {
		return nil
	}
	if block.Type() != "block" && block.Type() != "module" {
		return []*sitter.Node{block}
	}
	var out []*sitter.Node
	for i := 0; i < int(block.NamedChildCount()); i++ {
		c := block.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// clauseBlock returns the suite of an except/else/finally clause.
func clauseBlock(n *sitter.Node) *sitter.Node {
	if body := n.ChildByFieldName("body"); body != nil {
		return body
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if c := n.NamedChild(i); c.Type() == "block" {
			return c
		}
	}
	return nil
}

// unwrapDecorated drops the decorators: a decorated def starts at its def
// line.
func unwrapDecorated(n *sitter.Node) *sitter.Node {
	if n.Type() != "decorated_definition" {
		return n
	}
	if def := n.ChildByFieldName("definition"); def != nil {
		return def
	}
	return n
}

func definitionName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "function_definition", "class_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return ""
}

// lineRange returns the 1-based first and last line of a statement.
func lineRange(n *sitter.Node) (int, int) {
	return int(n.StartPoint().Row) + 1, lastLine(n)
}

var compound = map[string]bool{
	"function_definition":  true,
	"class_definition":     true,
	"decorated_definition": true,
	"if_statement":         true,
	"elif_clause":          true,
	"else_clause":          true,
	"for_statement":        true,
	"while_statement":      true,
	"try_statement":        true,
	"except_clause":        true,
	"except_group_clause":  true,
	"finally_clause":       true,
	"with_statement":       true,
	"match_statement":      true,
	"case_clause":          true,
	"block":                true,
}

// lastLine follows the trailing non-comment child of compound statements so
// that comments after the last statement of a body stay outside its range.
func lastLine(n *sitter.Node) int {
	if compound[n.Type()] {
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			c := n.NamedChild(i)
			if c.Type() == "comment" {
				continue
			}
			return lastLine(c)
		}
	}
	end := n.EndPoint()
	row := int(end.Row)
	if end.Column == 0 && row > int(n.StartPoint().Row) {
		row--
	}
	return row + 1
}
