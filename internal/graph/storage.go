package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DocumentFileName is the name of the graph document file.
const DocumentFileName = "graph.json"

// Storage handles reading and writing the graph document. The store is
// handed a constructed Storage; resolving the document location is the
// caller's concern.
type Storage interface {
	// Load reads the document. Returns (nil, nil) when the document is
	// absent or empty, a CorruptionError when it cannot be parsed.
	Load() (*Snapshot, error)

	// Save writes the whole document as a single atomic replace. Write
	// failures surface as a PersistenceError.
	Save(snap *Snapshot) error

	// Exists checks if the document file exists.
	Exists() bool
}

// storage implements Storage with atomic write support.
type storage struct {
	dir string // Directory containing the document (.codeatlas/)
}

// NewStorage creates a file-backed Storage rooted at dir.
func NewStorage(dir string) (Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}

	// Temp directory for atomic writes
	tempDir := filepath.Join(dir, ".tmp")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &storage{dir: dir}, nil
}

// Load reads the graph document from disk.
func (s *storage) Load() (*Snapshot, error) {
	path := s.documentPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // Not an error, just no graph yet
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}

	// An empty document behaves like an absent one: first runs and
	// truncated-but-never-written files both start fresh.
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptionError{Path: path, Err: err}
	}
	if snap.HighlightQuestions == nil {
		snap.HighlightQuestions = make(map[string]string)
	}

	return &snap, nil
}

// Save writes the graph document using the write-temp-then-rename
// pattern, stamping document metadata first. Unknown fields present in a
// previously stored document are not carried over: the schema here is the
// whole contract, and anything outside it is dropped on the next save.
func (s *storage) Save(snap *Snapshot) error {
	snap.Meta.Version = DocumentVersion
	snap.Meta.GeneratedAt = time.Now().UTC()
	snap.Meta.NodeCount = len(snap.Nodes)
	snap.Meta.EdgeCount = len(snap.Edges)

	jsonData, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph document: %w", err)
	}

	finalPath := s.documentPath()
	tempPath := filepath.Join(s.dir, ".tmp", DocumentFileName)
	if err := os.WriteFile(tempPath, jsonData, 0644); err != nil {
		return &PersistenceError{Path: finalPath, Err: err}
	}

	// Atomic rename (POSIX guarantees atomicity)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return &PersistenceError{Path: finalPath, Err: err}
	}

	return nil
}

// Exists checks if the graph document exists.
func (s *storage) Exists() bool {
	_, err := os.Stat(s.documentPath())
	return err == nil
}

// documentPath returns the full path to the graph document.
func (s *storage) documentPath() string {
	return filepath.Join(s.dir, DocumentFileName)
}
