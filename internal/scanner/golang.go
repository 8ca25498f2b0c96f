package scanner

import (
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"strings"

	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// parseGoFile extracts declarations from a Go source file using go/ast.
// Type declarations become class nodes, function declarations become
// function nodes, and methods attach to the class of their receiver type
// when that type is declared in the same file.
func parseGoFile(relPath string, source []byte) (*FileGraph, error) {
	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, relPath, source, goparser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relPath, err)
	}

	ex := &goExtractor{
		relPath:   relPath,
		b:         newFileGraphBuilder(relPath),
		classIDs:  make(map[string]string),
		funcIDs:   make(map[string]string),
		methodIDs: make(map[string]map[string]string),
	}

	ex.collect(file)
	ex.emit()
	ex.resolveCalls()

	return ex.b.build(), nil
}

// goCallSite is one function body scheduled for call extraction after all
// declarations in the file are known.
type goCallSite struct {
	sourceID  string
	className string // receiver type for method-to-method resolution
	recvVar   string // receiver variable name, empty for plain functions
	body      *ast.BlockStmt
}

type goExtractor struct {
	relPath string
	b       *fileGraphBuilder

	types []*ast.TypeSpec // type declarations in source order
	funcs []*ast.FuncDecl // function declarations in source order, methods included

	classIDs  map[string]string            // type name -> class node id
	funcIDs   map[string]string            // file-level function name -> node id
	methodIDs map[string]map[string]string // receiver type -> method name -> node id

	callSites []goCallSite
}

// collect gathers type and function declarations in source order.
func (ex *goExtractor) collect(file *ast.File) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					ex.types = append(ex.types, ts)
				}
			}
		case *ast.FuncDecl:
			ex.funcs = append(ex.funcs, d)
		}
	}
}

// emit produces nodes and structural edges: classes with their methods
// first, then file-level functions. Methods whose receiver type is declared
// in another file of the package are emitted as file-level "Type.method"
// function nodes instead of dangling under a class this file never declares.
func (ex *goExtractor) emit() {
	// Class ids are known up front so inheritance and call targets resolve
	// regardless of declaration order.
	for _, ts := range ex.types {
		ex.classIDs[ts.Name.Name] = entityID(ex.relPath, ts.Name.Name)
	}

	methodsByType := make(map[string][]*ast.FuncDecl)
	var fileLevel []*ast.FuncDecl
	for _, fn := range ex.funcs {
		typeName := receiverTypeName(fn.Recv)
		if typeName != "" {
			if _, ok := ex.classIDs[typeName]; ok {
				methodsByType[typeName] = append(methodsByType[typeName], fn)
				continue
			}
		}
		fileLevel = append(fileLevel, fn)
	}

	for _, ts := range ex.types {
		name := ts.Name.Name
		methods := methodsByType[name]

		md, bases := ex.classInfo(ts, methods)
		for _, m := range methods {
			md.Children = append(md.Children, methodID(ex.relPath, name, m.Name.Name))
		}

		classID := ex.b.addClass(name, md)
		for _, base := range bases {
			target := base
			if id, ok := ex.classIDs[base]; ok {
				target = id
			}
			ex.b.addEdge(graph.EdgeInherit, classID, target)
		}

		ex.methodIDs[name] = make(map[string]string)
		for _, m := range methods {
			id := ex.b.addMethod(name, m.Name.Name, funcMetadata(m))
			ex.methodIDs[name][m.Name.Name] = id
			ex.callSites = append(ex.callSites, goCallSite{
				sourceID:  id,
				className: name,
				recvVar:   receiverVarName(m.Recv),
				body:      m.Body,
			})
		}
	}

	for _, fn := range fileLevel {
		name := fn.Name.Name
		className := receiverTypeName(fn.Recv)
		if className != "" {
			name = className + "." + fn.Name.Name
		}

		id := ex.b.addFunction(name, funcMetadata(fn))
		if className != "" {
			// Register under the receiver type so sibling-method calls
			// still resolve.
			if ex.methodIDs[className] == nil {
				ex.methodIDs[className] = make(map[string]string)
			}
			ex.methodIDs[className][fn.Name.Name] = id
		} else {
			ex.funcIDs[name] = id
		}

		ex.callSites = append(ex.callSites, goCallSite{
			sourceID:  id,
			className: className,
			recvVar:   receiverVarName(fn.Recv),
			body:      fn.Body,
		})
	}
}

// classInfo derives class metadata and embedded base type names from a type
// declaration. Struct fields become attributes, interface members become
// functions, and anonymous fields become inheritance candidates.
func (ex *goExtractor) classInfo(ts *ast.TypeSpec, methods []*ast.FuncDecl) (graph.ClassMetadata, []string) {
	md := graph.ClassMetadata{
		Functions:  []string{},
		Attributes: []string{},
		Children:   []string{},
	}
	var bases []string

	switch t := ts.Type.(type) {
	case *ast.StructType:
		for _, field := range t.Fields.List {
			if len(field.Names) == 0 {
				bases = append(bases, embeddedTypeName(field.Type))
				continue
			}
			for _, name := range field.Names {
				md.Attributes = append(md.Attributes, name.Name)
			}
		}
	case *ast.InterfaceType:
		for _, member := range t.Methods.List {
			if len(member.Names) == 0 {
				bases = append(bases, embeddedTypeName(member.Type))
				continue
			}
			for _, name := range member.Names {
				md.Functions = append(md.Functions, name.Name)
			}
		}
	}

	for _, m := range methods {
		md.Functions = append(md.Functions, m.Name.Name)
	}

	return md, bases
}

// resolveCalls walks every collected function body and records invokes
// edges for callees declared in the same file: plain identifiers resolve to
// file-level functions, receiver selector calls to sibling methods.
func (ex *goExtractor) resolveCalls() {
	for _, site := range ex.callSites {
		if site.body == nil {
			continue
		}
		ast.Inspect(site.body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			switch fun := call.Fun.(type) {
			case *ast.Ident:
				if target, ok := ex.funcIDs[fun.Name]; ok {
					ex.b.addEdge(graph.EdgeInvokes, site.sourceID, target)
				}
			case *ast.SelectorExpr:
				ident, ok := fun.X.(*ast.Ident)
				if !ok || site.recvVar == "" || ident.Name != site.recvVar {
					return true
				}
				if target, ok := ex.methodIDs[site.className][fun.Sel.Name]; ok {
					ex.b.addEdge(graph.EdgeInvokes, site.sourceID, target)
				}
			}
			return true
		})
	}
}

// funcMetadata builds function metadata from a declaration's signature and
// doc comment.
func funcMetadata(decl *ast.FuncDecl) graph.FunctionMetadata {
	doc := ""
	if decl.Doc != nil {
		doc = strings.TrimSpace(decl.Doc.Text())
	}
	return graph.FunctionMetadata{
		Parameters:        paramNames(decl.Type.Params),
		Returns:           returnsString(decl.Type.Results),
		BriefSummary:      briefSummary(doc),
		FullDocumentation: doc,
	}
}

// paramNames lists parameter names in declaration order. Unnamed parameters
// fall back to their type string.
func paramNames(params *ast.FieldList) []string {
	names := []string{}
	if params == nil {
		return names
	}
	for _, field := range params.List {
		if len(field.Names) == 0 {
			names = append(names, exprString(field.Type))
			continue
		}
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
	}
	return names
}

// returnsString renders the result list as a single type string, with
// parentheses around multiple results.
func returnsString(results *ast.FieldList) string {
	if results == nil || len(results.List) == 0 {
		return ""
	}

	parts := []string{}
	for _, field := range results.List {
		t := exprString(field.Type)
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			parts = append(parts, t)
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// receiverTypeName extracts the receiver's base type name, unwrapping
// pointers and generic instantiations.
func receiverTypeName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}

	t := recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	if idx, ok := t.(*ast.IndexExpr); ok {
		t = idx.X
	}
	if idx, ok := t.(*ast.IndexListExpr); ok {
		t = idx.X
	}
	if ident, ok := t.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// receiverVarName extracts the receiver variable name, if any.
func receiverVarName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 || len(recv.List[0].Names) == 0 {
		return ""
	}
	return recv.List[0].Names[0].Name
}

// embeddedTypeName renders an embedded field's type, stripping the pointer
// marker so it matches declared type names.
func embeddedTypeName(expr ast.Expr) string {
	return strings.TrimPrefix(exprString(expr), "*")
}

// exprString renders a type expression as source-like text.
func exprString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprString(e.X)
	case *ast.SelectorExpr:
		return exprString(e.X) + "." + e.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(e.Elt)
	case *ast.MapType:
		return "map[" + exprString(e.Key) + "]" + exprString(e.Value)
	case *ast.Ellipsis:
		return "..." + exprString(e.Elt)
	case *ast.ChanType:
		return "chan " + exprString(e.Value)
	case *ast.FuncType:
		return "func"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.StructType:
		return "struct{}"
	case *ast.IndexExpr:
		return exprString(e.X) + "[" + exprString(e.Index) + "]"
	case *ast.IndexListExpr:
		parts := make([]string, len(e.Indices))
		for i, idx := range e.Indices {
			parts[i] = exprString(idx)
		}
		return exprString(e.X) + "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}
