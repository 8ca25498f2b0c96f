package scanner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeatlas-io/codeatlas/internal/config"
	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// ProgressReporter reports progress during a repository scan.
type ProgressReporter interface {
	OnScanStart(totalFiles int)
	OnFileScanned(scannedFiles, totalFiles int, fileName string)
	OnScanComplete(nodeCount, edgeCount int, duration time.Duration)
}

// FileGraph holds the nodes and edges extracted from a single source file.
type FileGraph struct {
	Nodes []graph.NodeInput
	Edges []graph.EdgeInput
}

// Result aggregates the outcome of a repository scan. Nodes and edges are
// ordered by file discovery order, then by declaration order within each
// file, so repeated scans of an unchanged tree produce identical output.
type Result struct {
	Nodes   []graph.NodeInput
	Edges   []graph.EdgeInput
	Files   int      // files parsed successfully
	Skipped []string // relative paths of files that failed to parse
}

// Scanner extracts code structure from a repository tree.
type Scanner interface {
	// Scan discovers source files under the root directory and extracts
	// file, class and function nodes together with contains, inherit and
	// invokes edges.
	Scan(ctx context.Context) (*Result, error)
}

// scanner implements Scanner.
type scanner struct {
	rootDir  string
	cfg      *config.Config
	progress ProgressReporter
}

// Option configures a Scanner.
type Option func(*scanner)

// WithProgress configures progress reporting.
func WithProgress(progress ProgressReporter) Option {
	return func(s *scanner) {
		s.progress = progress
	}
}

// NewScanner creates a new repository scanner.
func NewScanner(rootDir string, cfg *config.Config, opts ...Option) Scanner {
	s := &scanner{
		rootDir: rootDir,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan discovers source files and extracts their structure in parallel.
// Per-file parse failures are logged and collected in Result.Skipped; they
// do not abort the scan.
func (s *scanner) Scan(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	fd, err := NewFileDiscovery(s.rootDir, s.cfg.Scan.Code, s.cfg.Scan.Ignore)
	if err != nil {
		return nil, err
	}

	files, err := fd.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover source files: %w", err)
	}

	if s.progress != nil {
		s.progress.OnScanStart(len(files))
	}

	workers := s.cfg.Scan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type fileOutcome struct {
		relPath string
		graph   *FileGraph
		err     error
	}

	// Indexed writes keep per-file results in discovery order without a
	// mutex; only the progress counter is shared.
	outcomes := make([]fileOutcome, len(files))
	var scanned atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			relPath, err := filepath.Rel(s.rootDir, path)
			if err != nil {
				return err
			}
			relPath = filepath.ToSlash(relPath)

			fg, err := ParseFile(relPath, path)
			outcomes[i] = fileOutcome{relPath: relPath, graph: fg, err: err}

			done := scanned.Add(1)
			if s.progress != nil {
				s.progress.OnFileScanned(int(done), len(files), filepath.Base(path))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Nodes: []graph.NodeInput{},
		Edges: []graph.EdgeInput{},
	}
	for _, out := range outcomes {
		if out.err != nil {
			log.Printf("Warning: failed to scan %s: %v", out.relPath, out.err)
			result.Skipped = append(result.Skipped, out.relPath)
			continue
		}
		if out.graph == nil {
			// Unsupported extension
			continue
		}
		result.Nodes = append(result.Nodes, out.graph.Nodes...)
		result.Edges = append(result.Edges, out.graph.Edges...)
		result.Files++
	}

	if s.progress != nil {
		s.progress.OnScanComplete(len(result.Nodes), len(result.Edges), time.Since(startTime))
	}

	return result, nil
}

// parseFunc extracts a FileGraph from one source file.
type parseFunc func(relPath string, source []byte) (*FileGraph, error)

// parsersByExt maps file extensions to language parsers.
var parsersByExt = map[string]parseFunc{
	".go":  parseGoFile,
	".py":  parsePythonFile,
	".ts":  parseTypeScriptFile,
	".tsx": parseTSXFile,
	".js":  parseJavaScriptFile,
	".jsx": parseJavaScriptFile,
}

// ParseFile reads a source file and extracts its structure, dispatching on
// file extension. Returns (nil, nil) for unsupported extensions.
func ParseFile(relPath, absPath string) (*FileGraph, error) {
	parse, ok := parsersByExt[strings.ToLower(filepath.Ext(relPath))]
	if !ok {
		return nil, nil
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	return parse(relPath, source)
}

// Node and edge identity scheme shared by all language parsers.
//
// A file node's id is its slash-separated path relative to the scan root.
// Entities declared in a file append "::" plus the entity name, and methods
// use "Class.method" as the name part:
//
//	internal/app/server.go
//	internal/app/server.go::Server
//	internal/app/server.go::Server.Start
//	internal/app/server.go::NewServer

// entityID returns the node id for a named entity declared in a file.
func entityID(relPath, name string) string {
	return fmt.Sprintf("%s::%s", relPath, name)
}

// methodID returns the node id for a method declared on a class.
func methodID(relPath, className, methodName string) string {
	return fmt.Sprintf("%s::%s.%s", relPath, className, methodName)
}

// structuralEdgeID returns a deterministic edge id so that rescanning an
// unchanged tree upserts the same edges instead of accumulating duplicates.
func structuralEdgeID(edgeType graph.EdgeType, source, target string) string {
	return fmt.Sprintf("%s:%s->%s", edgeType, source, target)
}

// briefSummary returns the first line of a documentation block.
func briefSummary(doc string) string {
	doc = strings.TrimSpace(doc)
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		return strings.TrimSpace(doc[:i])
	}
	return doc
}

// fileGraphBuilder accumulates the nodes and edges extracted from one source
// file and assembles the file node's metadata at the end. Node ids are
// recorded in declaration order so scan output is stable.
type fileGraphBuilder struct {
	relPath string
	classes []string // class node ids in declaration order
	funcs   []string // top-level function node ids in declaration order
	nodes   []graph.NodeInput
	edges   []graph.EdgeInput
	edgeIDs map[string]bool
}

func newFileGraphBuilder(relPath string) *fileGraphBuilder {
	return &fileGraphBuilder{
		relPath: relPath,
		edgeIDs: make(map[string]bool),
	}
}

// addClass records a class node and its containment edge from the file.
func (b *fileGraphBuilder) addClass(qualifiedName string, md graph.ClassMetadata) string {
	id := entityID(b.relPath, qualifiedName)
	b.classes = append(b.classes, id)
	b.nodes = append(b.nodes, graph.NodeInput{ID: id, Type: graph.NodeClass, Metadata: md})
	b.addEdge(graph.EdgeContains, b.relPath, id)
	return id
}

// addFunction records a top-level function node and its containment edge
// from the file.
func (b *fileGraphBuilder) addFunction(name string, md graph.FunctionMetadata) string {
	id := entityID(b.relPath, name)
	b.funcs = append(b.funcs, id)
	b.nodes = append(b.nodes, graph.NodeInput{ID: id, Type: graph.NodeFunction, Metadata: md})
	b.addEdge(graph.EdgeContains, b.relPath, id)
	return id
}

// addNestedClass records a class declared inside another class. It hangs
// off the parent class rather than the file.
func (b *fileGraphBuilder) addNestedClass(parentClassID, qualifiedName string, md graph.ClassMetadata) string {
	id := entityID(b.relPath, qualifiedName)
	b.nodes = append(b.nodes, graph.NodeInput{ID: id, Type: graph.NodeClass, Metadata: md})
	b.addEdge(graph.EdgeContains, parentClassID, id)
	return id
}

// addMethod records a method node and its containment edge from the class.
func (b *fileGraphBuilder) addMethod(className, methodName string, md graph.FunctionMetadata) string {
	id := methodID(b.relPath, className, methodName)
	b.nodes = append(b.nodes, graph.NodeInput{ID: id, Type: graph.NodeFunction, Metadata: md})
	b.addEdge(graph.EdgeContains, entityID(b.relPath, className), id)
	return id
}

// addEdge records a structural edge, dropping duplicates within the file.
func (b *fileGraphBuilder) addEdge(edgeType graph.EdgeType, source, target string) {
	id := structuralEdgeID(edgeType, source, target)
	if b.edgeIDs[id] {
		return
	}
	b.edgeIDs[id] = true
	b.edges = append(b.edges, graph.EdgeInput{
		ID:     id,
		Source: source,
		Target: target,
		Type:   edgeType,
	})
}

// build assembles the FileGraph with the file node first.
func (b *fileGraphBuilder) build() *FileGraph {
	fileNode := graph.NodeInput{
		ID:   b.relPath,
		Type: graph.NodeFile,
		Metadata: graph.FileMetadata{
			Classes:   append([]string{}, b.classes...),
			Functions: append([]string{}, b.funcs...),
		},
	}

	nodes := make([]graph.NodeInput, 0, len(b.nodes)+1)
	nodes = append(nodes, fileNode)
	nodes = append(nodes, b.nodes...)

	return &FileGraph{Nodes: nodes, Edges: b.edges}
}
