package scanner

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// parsePythonFile extracts classes, functions and methods from a Python
// source file using tree-sitter.
func parsePythonFile(relPath string, source []byte) (*FileGraph, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(sitter.NewLanguage(python.Language())); err != nil {
		return nil, fmt.Errorf("failed to load python grammar: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse python file %s", relPath)
	}
	defer tree.Close()

	ex := &pyExtractor{
		relPath:   relPath,
		source:    source,
		b:         newFileGraphBuilder(relPath),
		classIDs:  make(map[string]string),
		funcIDs:   make(map[string]string),
		methodIDs: make(map[string]map[string]string),
	}

	ex.extractModule(tree.RootNode())
	ex.resolveCalls()

	return ex.b.build(), nil
}

// pyCallSite is one function body scheduled for call extraction once all
// definitions in the file are known.
type pyCallSite struct {
	sourceID  string
	className string // enclosing class for self-call resolution
	body      *sitter.Node
}

type pyExtractor struct {
	relPath string
	source  []byte
	b       *fileGraphBuilder

	classIDs  map[string]string            // qualified class name -> node id
	funcIDs   map[string]string            // top-level function name -> node id
	methodIDs map[string]map[string]string // qualified class name -> method name -> node id

	callSites []pyCallSite
}

// extractModule walks the module's top-level statements. Definitions are
// pre-registered so bases and call targets resolve regardless of
// declaration order.
func (ex *pyExtractor) extractModule(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := unwrapDecorated(root.Child(uint(i)))
		name := ex.nodeName(child)
		if name == "" {
			continue
		}
		switch child.Kind() {
		case "class_definition":
			ex.classIDs[name] = entityID(ex.relPath, name)
		case "function_definition":
			ex.funcIDs[name] = entityID(ex.relPath, name)
		}
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		child := unwrapDecorated(root.Child(uint(i)))
		switch child.Kind() {
		case "class_definition":
			ex.extractClass(child, "", "")
		case "function_definition":
			ex.extractFunction(child)
		}
	}
}

// extractClass emits a class node with its methods, attributes and nested
// classes. Nested classes hang off their parent and use dotted names, so
// class Outer with class Inner yields "path::Outer.Inner".
func (ex *pyExtractor) extractClass(node *sitter.Node, prefix, parentID string) {
	name := ex.nodeName(node)
	if name == "" {
		return
	}
	qualified := name
	if prefix != "" {
		qualified = prefix + "." + name
	}

	body := node.ChildByFieldName("body")

	var methods []*sitter.Node
	var nested []*sitter.Node
	md := graph.ClassMetadata{
		Functions:  []string{},
		Attributes: []string{},
		Children:   []string{},
	}

	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			child := unwrapDecorated(body.Child(uint(i)))
			switch child.Kind() {
			case "function_definition":
				if m := ex.nodeName(child); m != "" {
					methods = append(methods, child)
					md.Functions = append(md.Functions, m)
					md.Children = append(md.Children, methodID(ex.relPath, qualified, m))
				}
			case "class_definition":
				if n := ex.nodeName(child); n != "" {
					nested = append(nested, child)
					md.Children = append(md.Children, entityID(ex.relPath, qualified+"."+n))
				}
			case "expression_statement":
				ex.collectAttributes(child, &md)
			}
		}
	}

	var classID string
	if parentID == "" {
		classID = ex.b.addClass(qualified, md)
	} else {
		classID = ex.b.addNestedClass(parentID, qualified, md)
	}
	ex.classIDs[qualified] = classID

	for _, base := range ex.classBases(node) {
		target := base
		if id, ok := ex.classIDs[base]; ok {
			target = id
		}
		ex.b.addEdge(graph.EdgeInherit, classID, target)
	}

	ex.methodIDs[qualified] = make(map[string]string)
	for _, m := range methods {
		mName := ex.nodeName(m)
		id := ex.b.addMethod(qualified, mName, ex.funcMetadata(m))
		ex.methodIDs[qualified][mName] = id
		ex.callSites = append(ex.callSites, pyCallSite{
			sourceID:  id,
			className: qualified,
			body:      m.ChildByFieldName("body"),
		})
	}

	for _, n := range nested {
		ex.extractClass(n, qualified, classID)
	}
}

// extractFunction emits a top-level function node.
func (ex *pyExtractor) extractFunction(node *sitter.Node) {
	name := ex.nodeName(node)
	if name == "" {
		return
	}

	id := ex.b.addFunction(name, ex.funcMetadata(node))
	ex.funcIDs[name] = id
	ex.callSites = append(ex.callSites, pyCallSite{
		sourceID: id,
		body:     node.ChildByFieldName("body"),
	})
}

// collectAttributes records class-body assignments as attributes.
func (ex *pyExtractor) collectAttributes(stmt *sitter.Node, md *graph.ClassMetadata) {
	assign := findChildByType(stmt, "assignment")
	if assign == nil {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	md.Attributes = append(md.Attributes, extractNodeText(left, ex.source))
}

// classBases lists base class names from the superclasses argument list.
// Keyword arguments such as metaclass= are skipped.
func (ex *pyExtractor) classBases(node *sitter.Node) []string {
	supers := node.ChildByFieldName("superclasses")
	if supers == nil {
		return nil
	}

	var bases []string
	for i := 0; i < int(supers.ChildCount()); i++ {
		child := supers.Child(uint(i))
		switch child.Kind() {
		case "identifier", "attribute":
			bases = append(bases, extractNodeText(child, ex.source))
		}
	}
	return bases
}

// funcMetadata builds function metadata from a definition's signature and
// docstring.
func (ex *pyExtractor) funcMetadata(node *sitter.Node) graph.FunctionMetadata {
	doc := ex.docstring(node)

	returns := ""
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		returns = extractNodeText(rt, ex.source)
	}

	return graph.FunctionMetadata{
		Parameters:        ex.paramNames(node.ChildByFieldName("parameters")),
		Returns:           returns,
		BriefSummary:      briefSummary(doc),
		FullDocumentation: doc,
	}
}

// paramNames lists parameter names in declaration order, keeping splat
// markers like *args and **kwargs.
func (ex *pyExtractor) paramNames(params *sitter.Node) []string {
	names := []string{}
	if params == nil {
		return names
	}

	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(uint(i))
		switch child.Kind() {
		case "identifier":
			names = append(names, extractNodeText(child, ex.source))
		case "default_parameter", "typed_default_parameter":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				names = append(names, extractNodeText(nameNode, ex.source))
			}
		case "typed_parameter":
			if ident := findFirstDescendant(child, "identifier"); ident != nil {
				names = append(names, extractNodeText(ident, ex.source))
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			names = append(names, extractNodeText(child, ex.source))
		}
	}
	return names
}

// docstring returns the leading string literal of a definition body.
func (ex *pyExtractor) docstring(node *sitter.Node) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}

	first := body.Child(0)
	if first.Kind() != "expression_statement" {
		return ""
	}
	str := findChildByType(first, "string")
	if str == nil {
		return ""
	}
	return stripDocstringQuotes(extractNodeText(str, ex.source))
}

// resolveCalls walks every collected body and records invokes edges for
// callees defined in the same file: bare identifiers resolve to top-level
// functions, self.name() calls to sibling methods.
func (ex *pyExtractor) resolveCalls() {
	for _, site := range ex.callSites {
		if site.body == nil {
			continue
		}
		walkTree(site.body, func(n *sitter.Node) bool {
			if n.Kind() != "call" {
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
			case "attribute":
				if site.className == "" {
					return true
				}
				obj := fn.ChildByFieldName("object")
				attr := fn.ChildByFieldName("attribute")
				if obj == nil || attr == nil || extractNodeText(obj, ex.source) != "self" {
					return true
				}
				if target, ok := ex.methodIDs[site.className][extractNodeText(attr, ex.source)]; ok {
					ex.b.addEdge(graph.EdgeInvokes, site.sourceID, target)
				}
			}
			return true
		})
	}
}

// nodeName extracts the text of a node's name field.
func (ex *pyExtractor) nodeName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return extractNodeText(node.ChildByFieldName("name"), ex.source)
}

// unwrapDecorated returns the wrapped definition of a decorated_definition
// node, or the node itself.
func unwrapDecorated(node *sitter.Node) *sitter.Node {
	if node != nil && node.Kind() == "decorated_definition" {
		if def := node.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return node
}
