package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/apiscan/internal/lang"
	"github.com/phobologic/apiscan/internal/model"
)

// ErrEmptyHeader is returned when a header has no content to parse.
var ErrEmptyHeader = errors.New("empty header")

// maxCommentLookback bounds how many lines above a declaration are searched
// for a doc comment.
const maxCommentLookback = 5

var bodyRe = regexp.MustCompile(`(?s)\{.*\}`)

// ParseHeader parses a C/C++ header and returns its API declarations in
// source order. path is recorded in each symbol's Location.
func ParseHeader(ctx context.Context, source []byte, path string) ([]model.ApiSymbol, error) {
	if len(strings.TrimSpace(string(source))) == 0 {
		return nil, ErrEmptyHeader
	}

	parser := lang.CPP.NewParser()
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	w := &walker{
		source: source,
		path:   path,
		lines:  strings.Split(string(source), "\n"),
	}
	w.walk(tree.RootNode(), nil, "")
	return w.symbols, nil
}

type walker struct {
	source  []byte
	path    string
	lines   []string
	symbols []model.ApiSymbol
}

// walk visits node. scope holds the enclosing namespace/class names; class is
// the name of the immediately enclosing class or struct, "" outside one.
func (w *walker) walk(node *sitter.Node, scope []string, class string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "namespace_definition":
		inner := scope
		if name := node.ChildByFieldName("name"); name != nil {
			inner = append(append([]string(nil), scope...), w.text(name))
		}
		w.walk(node.ChildByFieldName("body"), inner, "")

	case "class_specifier", "struct_specifier":
		w.record(node, scope, class)

	case "enum_specifier":
		w.enum(node, scope)

	case "function_definition":
		w.declarator(node, node.ChildByFieldName("declarator"), scope, class)

	case "declaration", "field_declaration":
		if typ := node.ChildByFieldName("type"); typ != nil {
			w.walk(typ, scope, class)
		}
		for _, d := range w.fieldChildren(node, "declarator") {
			w.declarator(node, d, scope, class)
		}

	case "type_definition":
		if typ := node.ChildByFieldName("type"); typ != nil {
			w.walk(typ, scope, class)
		}
		for _, d := range w.fieldChildren(node, "declarator") {
			if name := declaratorName(d); name != nil {
				w.add(node, appendScope(scope, w.text(name)), model.Typedef, "")
			}
		}

	case "preproc_def", "preproc_function_def":
		if name := node.ChildByFieldName("name"); name != nil {
			w.add(node, w.text(name), model.Macro, "")
		}

	case "comment", "access_specifier", "friend_declaration", "alias_declaration",
		"compound_statement", "preproc_include", "string_literal":
		// not part of the declared API surface

	default:
		// translation_unit, declaration_list, preproc conditionals,
		// linkage specifications, templates and error-recovery nodes.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			w.walk(node.NamedChild(i), scope, class)
		}
	}
}

// record emits a class or struct and descends into its body.
func (w *walker) record(node *sitter.Node, scope []string, class string) {
	kind := model.Class
	if node.Type() == "struct_specifier" {
		kind = model.Struct
	}
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil {
		// anonymous aggregate: members belong to the enclosing scope
		if body != nil {
			w.members(body, scope, class)
		}
		return
	}
	name := w.text(nameNode)
	qualified := appendScope(scope, name)
	w.add(node, qualified, kind, "")
	if body != nil {
		w.members(body, strings.Split(qualified, model.ScopeSeparator), lastSegment(name))
	}
}

func (w *walker) members(body *sitter.Node, scope []string, class string) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		w.walk(body.NamedChild(i), scope, class)
	}
}

// enum emits the enum and its constants. Constants are qualified by the enum
// name whether or not the enum is scoped.
func (w *walker) enum(node *sitter.Node, scope []string) {
	enumScope := scope
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		qualified := appendScope(scope, w.text(nameNode))
		w.add(node, qualified, model.Enum, "")
		enumScope = strings.Split(qualified, model.ScopeSeparator)
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		e := body.NamedChild(i)
		if e.Type() != "enumerator" {
			continue
		}
		if name := e.ChildByFieldName("name"); name != nil {
			w.add(e, appendScope(enumScope, w.text(name)), model.EnumConstant, "")
		}
	}
}

// declarator classifies one declarator of decl and records it.
func (w *walker) declarator(decl, d *sitter.Node, scope []string, class string) {
	fn := functionDeclarator(d)
	if fn == nil {
		name := declaratorName(d)
		if name == nil {
			return
		}
		kind := model.Variable
		if class != "" {
			kind = model.Field
		}
		w.add(decl, appendScope(scope, w.text(name)), kind, "")
		return
	}

	name := declaratorName(fn.ChildByFieldName("declarator"))
	if name == nil {
		return
	}
	text := w.text(name)
	var kind model.SymbolKind
	switch {
	case name.Type() == "destructor_name":
		kind = model.Destructor
	case class != "" && text == class:
		kind = model.Constructor
	case class != "" || strings.Contains(text, model.ScopeSeparator):
		kind = model.Method
	default:
		kind = model.Function
	}
	w.add(decl, appendScope(scope, text), kind, w.signature(decl))
}

func (w *walker) add(node *sitter.Node, qualified string, kind model.SymbolKind, signature string) {
	if qualified == "" {
		return
	}
	row := int(node.StartPoint().Row)
	s := model.NewSymbol(qualified, kind)
	s.Location = fmt.Sprintf("%s:%d", w.path, row+1)
	s.Signature = signature
	s.Comment = LeadingComment(w.lines, row)
	w.symbols = append(w.symbols, s)
}

func (w *walker) signature(decl *sitter.Node) string {
	sig := bodyRe.ReplaceAllString(w.text(decl), "")
	sig = lang.CollapseWhitespace(sig)
	return strings.TrimSpace(strings.TrimSuffix(sig, ";"))
}

func (w *walker) text(node *sitter.Node) string {
	return lang.NodeText(node, w.source)
}

// fieldChildren returns all children of node stored under field.
func (w *walker) fieldChildren(node *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) == field {
			out = append(out, node.Child(i))
		}
	}
	return out
}

// functionDeclarator unwraps pointer, reference and init declarators down to
// a function_declarator. A function declarator whose own declarator is
// parenthesized declares a function pointer, which is not a function.
func functionDeclarator(d *sitter.Node) *sitter.Node {
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			if inner := d.ChildByFieldName("declarator"); inner != nil && inner.Type() == "parenthesized_declarator" {
				return nil
			}
			return d
		case "init_declarator", "pointer_declarator", "reference_declarator",
			"attributed_declarator":
			d = innerDeclarator(d)
		default:
			return nil
		}
	}
	return nil
}

// declaratorName returns the identifier node a declarator declares.
func declaratorName(d *sitter.Node) *sitter.Node {
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier", "type_identifier", "qualified_identifier",
			"destructor_name", "operator_name", "primitive_type":
			return d
		case "init_declarator", "pointer_declarator", "reference_declarator",
			"array_declarator", "attributed_declarator", "parenthesized_declarator",
			"function_declarator":
			d = innerDeclarator(d)
		default:
			return nil
		}
	}
	return nil
}

func innerDeclarator(d *sitter.Node) *sitter.Node {
	if inner := d.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	if n := d.NamedChildCount(); n > 0 {
		return d.NamedChild(int(n) - 1)
	}
	return nil
}

func appendScope(scope []string, name string) string {
	if len(scope) == 0 {
		return name
	}
	return strings.Join(scope, model.ScopeSeparator) + model.ScopeSeparator + name
}

func lastSegment(name string) string {
	short, _ := model.SplitName(name)
	return short
}

// LeadingComment returns the "//" comment block directly above the
// declaration on line row (0-based), looking back at most five lines. A line
// opening or closing a block comment ends the search, as does any code line;
// a blank line ends it once comment text was collected.
func LeadingComment(lines []string, row int) string {
	if row <= 0 || row > len(lines) {
		return ""
	}
	var collected []string
	idx := row - 1
	for n := 0; n < maxCommentLookback && idx >= 0; n++ {
		line := strings.TrimSpace(lines[idx])
		switch {
		case strings.HasPrefix(line, "//"):
			collected = append([]string{strings.TrimSpace(line[2:])}, collected...)
		case strings.HasPrefix(line, "/*") || strings.HasSuffix(line, "*/"):
			return strings.Join(collected, "\n")
		case line == "":
			if len(collected) > 0 {
				return strings.Join(collected, "\n")
			}
		default:
			return strings.Join(collected, "\n")
		}
		idx--
	}
	return strings.Join(collected, "\n")
}
