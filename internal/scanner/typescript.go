package scanner

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// parseTypeScriptFile extracts classes, functions and methods from a
// TypeScript source file.
func parseTypeScriptFile(relPath string, source []byte) (*FileGraph, error) {
	return parseESFile(relPath, source, sitter.NewLanguage(typescript.LanguageTypescript()), "typescript")
}

// parseTSXFile extracts structure from a TSX source file. TSX needs its own
// grammar; the plain TypeScript grammar does not accept JSX syntax.
func parseTSXFile(relPath string, source []byte) (*FileGraph, error) {
	return parseESFile(relPath, source, sitter.NewLanguage(typescript.LanguageTSX()), "tsx")
}

// parseESFile runs the shared extraction for the TypeScript and JavaScript
// grammar family. The grammars share node kinds for everything extracted
// here, so one walker serves all of them.
func parseESFile(relPath string, source []byte, language *sitter.Language, langName string) (*FileGraph, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to load %s grammar: %w", langName, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s file %s", langName, relPath)
	}
	defer tree.Close()

	ex := &esExtractor{
		relPath:   relPath,
		source:    source,
		b:         newFileGraphBuilder(relPath),
		classIDs:  make(map[string]string),
		funcIDs:   make(map[string]string),
		methodIDs: make(map[string]map[string]string),
	}

	ex.extractProgram(tree.RootNode())
	ex.resolveCalls()

	return ex.b.build(), nil
}

// esCallSite is one function body scheduled for call extraction once all
// declarations in the file are known.
type esCallSite struct {
	sourceID  string
	className string // enclosing class for this-call resolution
	body      *sitter.Node
}

type esExtractor struct {
	relPath string
	source  []byte
	b       *fileGraphBuilder

	classIDs  map[string]string            // class name -> node id
	funcIDs   map[string]string            // top-level function name -> node id
	methodIDs map[string]map[string]string // class name -> method name -> node id

	callSites []esCallSite
}

// extractProgram walks the module's top-level statements, unwrapping export
// statements. Declarations are pre-registered so bases and call targets
// resolve regardless of declaration order.
func (ex *esExtractor) extractProgram(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		decl := unwrapExport(root.Child(uint(i)))
		switch decl.Kind() {
		case "class_declaration", "abstract_class_declaration":
			if name := ex.nodeName(decl); name != "" {
				ex.classIDs[name] = entityID(ex.relPath, name)
			}
		case "function_declaration", "generator_function_declaration":
			if name := ex.nodeName(decl); name != "" {
				ex.funcIDs[name] = entityID(ex.relPath, name)
			}
		case "lexical_declaration", "variable_declaration":
			for _, d := range findChildrenByType(decl, "variable_declarator") {
				if name, fn := ex.declaratorFunction(d); fn != nil {
					ex.funcIDs[name] = entityID(ex.relPath, name)
				}
			}
		}
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		decl := unwrapExport(root.Child(uint(i)))
		switch decl.Kind() {
		case "class_declaration", "abstract_class_declaration":
			ex.extractClass(decl)
		case "function_declaration", "generator_function_declaration":
			ex.extractFunction(decl)
		case "lexical_declaration", "variable_declaration":
			for _, d := range findChildrenByType(decl, "variable_declarator") {
				ex.extractDeclaratorFunction(d)
			}
		}
	}
}

// extractClass emits a class node with its methods and field attributes.
func (ex *esExtractor) extractClass(node *sitter.Node) {
	name := ex.nodeName(node)
	if name == "" {
		return
	}

	body := findChildByType(node, "class_body")

	var methods []*sitter.Node
	md := graph.ClassMetadata{
		Functions:  []string{},
		Attributes: []string{},
		Children:   []string{},
	}

	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			child := body.Child(uint(i))
			switch child.Kind() {
			case "method_definition":
				if m := ex.nodeName(child); m != "" {
					methods = append(methods, child)
					md.Functions = append(md.Functions, m)
					md.Children = append(md.Children, methodID(ex.relPath, name, m))
				}
			case "field_definition", "public_field_definition":
				if f := ex.propertyName(child); f != "" {
					md.Attributes = append(md.Attributes, f)
				}
			}
		}
	}

	classID := ex.b.addClass(name, md)
	ex.classIDs[name] = classID

	for _, base := range ex.classBases(node) {
		target := base
		if id, ok := ex.classIDs[base]; ok {
			target = id
		}
		ex.b.addEdge(graph.EdgeInherit, classID, target)
	}

	ex.methodIDs[name] = make(map[string]string)
	for _, m := range methods {
		mName := ex.nodeName(m)
		id := ex.b.addMethod(name, mName, ex.functionMetadata(m))
		ex.methodIDs[name][mName] = id
		ex.callSites = append(ex.callSites, esCallSite{
			sourceID:  id,
			className: name,
			body:      m.ChildByFieldName("body"),
		})
	}
}

// extractFunction emits a top-level function node.
func (ex *esExtractor) extractFunction(node *sitter.Node) {
	name := ex.nodeName(node)
	if name == "" {
		return
	}

	id := ex.b.addFunction(name, ex.functionMetadata(node))
	ex.funcIDs[name] = id
	ex.callSites = append(ex.callSites, esCallSite{
		sourceID: id,
		body:     node.ChildByFieldName("body"),
	})
}

// extractDeclaratorFunction emits a function node for a const or var bound
// to an arrow function or function expression.
func (ex *esExtractor) extractDeclaratorFunction(decl *sitter.Node) {
	name, fn := ex.declaratorFunction(decl)
	if fn == nil {
		return
	}

	doc := ""
	if parent := decl.Parent(); parent != nil {
		doc = ex.docComment(parent)
	}

	md := graph.FunctionMetadata{
		Parameters:        ex.functionParams(fn),
		Returns:           ex.returnType(fn),
		BriefSummary:      briefSummary(doc),
		FullDocumentation: doc,
	}

	id := ex.b.addFunction(name, md)
	ex.funcIDs[name] = id
	ex.callSites = append(ex.callSites, esCallSite{
		sourceID: id,
		body:     fn.ChildByFieldName("body"),
	})
}

// declaratorFunction returns the declarator's name and its function value,
// or nil when the declarator does not bind a function.
func (ex *esExtractor) declaratorFunction(decl *sitter.Node) (string, *sitter.Node) {
	nameNode := decl.ChildByFieldName("name")
	value := decl.ChildByFieldName("value")
	if nameNode == nil || nameNode.Kind() != "identifier" || value == nil {
		return "", nil
	}

	switch value.Kind() {
	case "arrow_function", "function_expression", "generator_function":
		return extractNodeText(nameNode, ex.source), value
	}
	return "", nil
}

// classBases lists base class names from the heritage clause. The
// TypeScript grammar nests an extends_clause inside class_heritage; the
// JavaScript grammar puts the expression directly after the extends
// keyword. Implements clauses are not inheritance and are skipped.
func (ex *esExtractor) classBases(node *sitter.Node) []string {
	heritage := findChildByType(node, "class_heritage")
	if heritage == nil {
		return nil
	}

	var bases []string
	collect := func(parent *sitter.Node) {
		for i := 0; i < int(parent.ChildCount()); i++ {
			child := parent.Child(uint(i))
			switch child.Kind() {
			case "identifier", "member_expression", "nested_type_identifier":
				bases = append(bases, extractNodeText(child, ex.source))
			case "generic_type":
				// Drop type arguments, keep the base name.
				if n := child.ChildByFieldName("name"); n != nil {
					bases = append(bases, extractNodeText(n, ex.source))
				}
			}
		}
	}

	if extends := findChildByType(heritage, "extends_clause"); extends != nil {
		collect(extends)
		return bases
	}
	collect(heritage)
	return bases
}

// functionMetadata builds function metadata from a declaration's signature
// and any JSDoc block above it.
func (ex *esExtractor) functionMetadata(node *sitter.Node) graph.FunctionMetadata {
	doc := ex.docComment(node)
	return graph.FunctionMetadata{
		Parameters:        ex.functionParams(node),
		Returns:           ex.returnType(node),
		BriefSummary:      briefSummary(doc),
		FullDocumentation: doc,
	}
}

// functionParams lists parameter names, handling the single bare parameter
// form of arrow functions.
func (ex *esExtractor) functionParams(fn *sitter.Node) []string {
	if params := fn.ChildByFieldName("parameters"); params != nil {
		return ex.paramNames(params)
	}
	if p := fn.ChildByFieldName("parameter"); p != nil {
		return []string{extractNodeText(p, ex.source)}
	}
	return []string{}
}

// paramNames lists parameter names in declaration order. Typed and
// destructured parameters reduce to their first bound name; rest parameters
// keep their ... marker.
func (ex *esExtractor) paramNames(params *sitter.Node) []string {
	names := []string{}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(uint(i))
		switch child.Kind() {
		case "identifier":
			names = append(names, extractNodeText(child, ex.source))
		case "rest_parameter", "rest_pattern":
			if ident := findFirstDescendant(child, "identifier"); ident != nil {
				names = append(names, "..."+extractNodeText(ident, ex.source))
			}
		default:
			if ident := findFirstDescendant(child, "identifier", "shorthand_property_identifier_pattern"); ident != nil {
				names = append(names, extractNodeText(ident, ex.source))
			}
		}
	}
	return names
}

// returnType renders the declared return type, without the annotation colon.
func (ex *esExtractor) returnType(fn *sitter.Node) string {
	rt := fn.ChildByFieldName("return_type")
	if rt == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(extractNodeText(rt, ex.source), ":"))
}

// propertyName extracts a class field's name. The TypeScript grammar calls
// the field "name", the JavaScript grammar calls it "property".
func (ex *esExtractor) propertyName(node *sitter.Node) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return extractNodeText(n, ex.source)
	}
	if n := node.ChildByFieldName("property"); n != nil {
		return extractNodeText(n, ex.source)
	}
	return ""
}

// docComment returns the JSDoc block immediately preceding a declaration,
// looking above the export statement when the declaration is exported.
func (ex *esExtractor) docComment(node *sitter.Node) string {
	target := node
	if p := node.Parent(); p != nil && p.Kind() == "export_statement" {
		target = p
	}

	prev := target.PrevNamedSibling()
	if prev == nil || prev.Kind() != "comment" {
		return ""
	}

	text := extractNodeText(prev, ex.source)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	return cleanBlockComment(text)
}

// resolveCalls walks every collected body and records invokes edges for
// callees declared in the same file: bare identifiers resolve to top-level
// functions, this.name() calls to sibling methods.
func (ex *esExtractor) resolveCalls() {
	for _, site := range ex.callSites {
		if site.body == nil {
			continue
		}
		walkTree(site.body, func(n *sitter.Node) bool {
			if n.Kind() != "call_expression" {
				return true
			}
			fn := n.ChildByFieldName("function")
			if fn == nil {
				return true
			}

			switch fn.Kind() {
			case "identifier":
				if target, ok := ex.funcIDs[extractNodeText(fn, ex.source)]; ok {
					ex.b.addEdge(graph.EdgeInvokes, site.sourceID, target)
				}
			case "member_expression":
				if site.className == "" {
					return true
				}
				obj := fn.ChildByFieldName("object")
				prop := fn.ChildByFieldName("property")
				if obj == nil || prop == nil || obj.Kind() != "this" {
					return true
				}
				if target, ok := ex.methodIDs[site.className][extractNodeText(prop, ex.source)]; ok {
					ex.b.addEdge(graph.EdgeInvokes, site.sourceID, target)
				}
			}
			return true
		})
	}
}

// nodeName extracts the text of a node's name field.
func (ex *esExtractor) nodeName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return extractNodeText(node.ChildByFieldName("name"), ex.source)
}

// unwrapExport returns the declaration wrapped by an export statement, or
// the node itself.
func unwrapExport(node *sitter.Node) *sitter.Node {
	if node != nil && node.Kind() == "export_statement" {
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return decl
		}
	}
	return node
}
