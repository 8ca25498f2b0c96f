package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Storage:
// - Save and load a document with correct metadata stamping
// - Load non-existent or empty file returns nil without error
// - Load unparseable file returns CorruptionError
// - Atomic write uses temp file and renames to final location
// - Defined fields round-trip losslessly through save/load

func TestStorage_SaveAndLoad(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "atlas")

	storage, err := NewStorage(dir)
	require.NoError(t, err)

	snap := &Snapshot{
		Nodes: []Node{
			{
				ID:   "src/animals.py::Animal",
				Type: NodeClass,
				Metadata: ClassMetadata{
					Functions:  []string{"speak"},
					Attributes: []string{"name"},
					Children:   []string{"src/animals.py::Animal.speak"},
				},
			},
			{
				ID:   "src/animals.py::Animal.speak",
				Type: NodeFunction,
				Metadata: FunctionMetadata{
					Parameters:   []string{"self"},
					Returns:      "str",
					BriefSummary: "Make a noise.",
				},
				Highlight: 2,
			},
		},
		Edges: []Edge{
			{
				ID:     "edge_1",
				Source: "src/animals.py::Animal",
				Target: "src/animals.py::Animal.speak",
				Type:   EdgeContains,
			},
		},
		HighlightQuestions: map[string]string{"2": "Where does the sound come from?"},
	}

	err = storage.Save(snap)
	require.NoError(t, err)

	assert.True(t, storage.Exists())

	loaded, err := storage.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	// Check metadata was stamped
	assert.Equal(t, DocumentVersion, loaded.Meta.Version)
	assert.Equal(t, 2, loaded.Meta.NodeCount)
	assert.Equal(t, 1, loaded.Meta.EdgeCount)

	// Check nodes and the typed metadata union
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, "src/animals.py::Animal", loaded.Nodes[0].ID)
	require.IsType(t, ClassMetadata{}, loaded.Nodes[0].Metadata)
	classMD := loaded.Nodes[0].Metadata.(ClassMetadata)
	assert.Equal(t, []string{"speak"}, classMD.Functions)

	require.IsType(t, FunctionMetadata{}, loaded.Nodes[1].Metadata)
	funcMD := loaded.Nodes[1].Metadata.(FunctionMetadata)
	assert.Equal(t, "str", funcMD.Returns)
	assert.Equal(t, 2, loaded.Nodes[1].Highlight)

	// Check edges and questions
	require.Len(t, loaded.Edges, 1)
	assert.Equal(t, "edge_1", loaded.Edges[0].ID)
	assert.Equal(t, EdgeContains, loaded.Edges[0].Type)
	q, ok := loaded.Question(2)
	assert.True(t, ok)
	assert.Equal(t, "Where does the sound come from?", q)
}

func TestStorage_LoadNonExistent(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "atlas")

	storage, err := NewStorage(dir)
	require.NoError(t, err)

	// Load non-existent file should return nil without error
	loaded, err := storage.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	assert.False(t, storage.Exists())
}

func TestStorage_LoadEmptyFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "atlas")

	storage, err := NewStorage(dir)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, DocumentFileName), []byte("\n"), 0644)
	require.NoError(t, err)

	// An empty document behaves like an absent one
	loaded, err := storage.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStorage_LoadCorrupt(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "atlas")

	storage, err := NewStorage(dir)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, DocumentFileName), []byte("{not json"), 0644)
	require.NoError(t, err)

	_, err = storage.Load()
	var corrupt *CorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, filepath.Join(dir, DocumentFileName), corrupt.Path)
}

func TestStorage_LoadUnknownNodeType(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "atlas")

	storage, err := NewStorage(dir)
	require.NoError(t, err)

	doc := `{"nodes": [{"id": "x", "type": "struct", "metadata": {}, "highlight": 0}], "edges": []}`
	err = os.WriteFile(filepath.Join(dir, DocumentFileName), []byte(doc), 0644)
	require.NoError(t, err)

	// The metadata union cannot be decoded without a known type tag
	_, err = storage.Load()
	var corrupt *CorruptionError
	require.ErrorAs(t, err, &corrupt)
}

func TestStorage_AtomicWrite(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "atlas")

	storage, err := NewStorage(dir)
	require.NoError(t, err)

	snap := &Snapshot{
		Nodes: []Node{
			{ID: "main.go", Type: NodeFile, Metadata: FileMetadata{Classes: []string{}, Functions: []string{}}},
		},
		Edges:              []Edge{},
		HighlightQuestions: map[string]string{},
	}

	err = storage.Save(snap)
	require.NoError(t, err)

	// Temp file should not exist after save (renamed to final)
	tempFile := filepath.Join(dir, ".tmp", DocumentFileName)
	_, err = os.Stat(tempFile)
	assert.True(t, os.IsNotExist(err), "temp file should be renamed")

	finalFile := filepath.Join(dir, DocumentFileName)
	_, err = os.Stat(finalFile)
	assert.NoError(t, err, "final file should exist")
}

func TestStorage_RoundTrip(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "atlas")

	storage, err := NewStorage(dir)
	require.NoError(t, err)

	snap := &Snapshot{
		Meta: GraphMeta{GraphID: "0b8e7de2-4b53-4a41-9126-6d4f2e60ad1b"},
		Nodes: []Node{
			{ID: "pkg/db.go", Type: NodeFile, Metadata: FileMetadata{
				Classes:   []string{"pkg/db.go::Conn"},
				Functions: []string{"pkg/db.go::Open"},
			}},
			{ID: "pkg/db.go::Conn", Type: NodeClass, Metadata: ClassMetadata{
				Functions:  []string{"Close"},
				Attributes: []string{"dsn"},
				Children:   []string{"pkg/db.go::Conn.Close"},
			}, Highlight: 5},
			{ID: "pkg/db.go::Open", Type: NodeFunction, Metadata: FunctionMetadata{
				Parameters:        []string{"dsn"},
				Returns:           "*Conn",
				BriefSummary:      "Open a connection.",
				FullDocumentation: "Open dials the database and returns a live connection.",
			}},
		},
		Edges: []Edge{
			{ID: "edge_1", Source: "pkg/db.go", Target: "pkg/db.go::Conn", Type: EdgeContains},
			{ID: "edge_2", Source: "pkg/db.go::Open", Target: "missing::Dial", Type: EdgeInvokes, Highlight: 5},
		},
		HighlightQuestions: map[string]string{"5": "What talks to the database?"},
	}

	require.NoError(t, storage.Save(snap))
	first, err := storage.Load()
	require.NoError(t, err)

	require.NoError(t, storage.Save(first))
	second, err := storage.Load()
	require.NoError(t, err)

	// Every defined field survives the second trip untouched
	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.HighlightQuestions, second.HighlightQuestions)
	assert.Equal(t, "0b8e7de2-4b53-4a41-9126-6d4f2e60ad1b", second.Meta.GraphID)
}
