package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// NodeType represents the kind of code entity a node stands for.
type NodeType string

const (
	NodeClass    NodeType = "class"
	NodeFunction NodeType = "function"
	NodeFile     NodeType = "file"
)

// ValidNodeType reports whether t is a recognized node type.
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeClass, NodeFunction, NodeFile:
		return true
	}
	return false
}

// EdgeType represents the kind of relationship between two nodes.
type EdgeType string

const (
	EdgeInherit  EdgeType = "inherit"  // class inherits from class
	EdgeInvokes  EdgeType = "invokes"  // function calls function
	EdgeContains EdgeType = "contains" // file contains class/function, class contains method
)

// ValidEdgeType reports whether t is a recognized edge type.
func ValidEdgeType(t EdgeType) bool {
	switch t {
	case EdgeInherit, EdgeInvokes, EdgeContains:
		return true
	}
	return false
}

// Metadata is the type-specific payload attached to a node. The concrete
// shape is keyed by the node's Type: ClassMetadata, FunctionMetadata or
// FileMetadata. The set is closed; implementations outside this package
// are not possible.
type Metadata interface {
	nodeType() NodeType
	clone() Metadata
}

// ClassMetadata describes a class node.
type ClassMetadata struct {
	Functions  []string `json:"functions"`  // Method names declared on the class
	Attributes []string `json:"attributes"` // Field/attribute names
	Children   []string `json:"children"`   // Node ids of contained members
}

func (m ClassMetadata) nodeType() NodeType { return NodeClass }

func (m ClassMetadata) clone() Metadata {
	return ClassMetadata{
		Functions:  copyStrings(m.Functions),
		Attributes: copyStrings(m.Attributes),
		Children:   copyStrings(m.Children),
	}
}

// FunctionMetadata describes a function or method node.
type FunctionMetadata struct {
	Parameters        []string `json:"parameters"`         // Parameter names in declaration order
	Returns           string   `json:"returns"`            // Return type or value description
	BriefSummary      string   `json:"brief_summary"`      // One-line summary
	FullDocumentation string   `json:"full_documentation"` // Complete doc text
}

func (m FunctionMetadata) nodeType() NodeType { return NodeFunction }

func (m FunctionMetadata) clone() Metadata {
	return FunctionMetadata{
		Parameters:        copyStrings(m.Parameters),
		Returns:           m.Returns,
		BriefSummary:      m.BriefSummary,
		FullDocumentation: m.FullDocumentation,
	}
}

// FileMetadata describes a file node.
type FileMetadata struct {
	Classes   []string `json:"classes"`   // Node ids of classes declared in the file
	Functions []string `json:"functions"` // Node ids of top-level functions
}

func (m FileMetadata) nodeType() NodeType { return NodeFile }

func (m FileMetadata) clone() Metadata {
	return FileMetadata{
		Classes:   copyStrings(m.Classes),
		Functions: copyStrings(m.Functions),
	}
}

// EmptyMetadata returns the default metadata payload for a node type, with
// every field set to its empty value. Returns nil for unknown types.
func EmptyMetadata(t NodeType) Metadata {
	switch t {
	case NodeClass:
		return ClassMetadata{Functions: []string{}, Attributes: []string{}, Children: []string{}}
	case NodeFunction:
		return FunctionMetadata{Parameters: []string{}}
	case NodeFile:
		return FileMetadata{Classes: []string{}, Functions: []string{}}
	}
	return nil
}

// decodeMetadata parses a raw metadata payload against the shape keyed by
// the node type. Absent or null metadata yields the type's empty default.
func decodeMetadata(t NodeType, raw json.RawMessage) (Metadata, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		md := EmptyMetadata(t)
		if md == nil {
			return nil, fmt.Errorf("unknown node type %q", t)
		}
		return md, nil
	}

	switch t {
	case NodeClass:
		var md ClassMetadata
		if err := json.Unmarshal(raw, &md); err != nil {
			return nil, fmt.Errorf("class metadata: %w", err)
		}
		return md.clone(), nil
	case NodeFunction:
		var md FunctionMetadata
		if err := json.Unmarshal(raw, &md); err != nil {
			return nil, fmt.Errorf("function metadata: %w", err)
		}
		return md.clone(), nil
	case NodeFile:
		var md FileMetadata
		if err := json.Unmarshal(raw, &md); err != nil {
			return nil, fmt.Errorf("file metadata: %w", err)
		}
		return md.clone(), nil
	}
	return nil, fmt.Errorf("unknown node type %q", t)
}

// copyStrings returns a copy of in, never nil, so defaults serialize as
// empty arrays rather than null.
func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Node represents a code entity in the graph.
type Node struct {
	ID        string   // Caller-supplied identifier, unique within the graph
	Type      NodeType // One of class, function, file
	Metadata  Metadata // Shape keyed by Type, never nil on a stored node
	Highlight int      // Color code, 0 means not highlighted
}

// nodeWire is the JSON form of a node; metadata is deferred so it can be
// decoded against the type tag.
type nodeWire struct {
	ID        string          `json:"id"`
	Type      NodeType        `json:"type"`
	Metadata  json.RawMessage `json:"metadata"`
	Highlight int             `json:"highlight"`
}

// MarshalJSON encodes the node with its typed metadata payload.
func (n Node) MarshalJSON() ([]byte, error) {
	md := n.Metadata
	if md == nil {
		md = EmptyMetadata(n.Type)
	}
	rawMD, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeWire{
		ID:        n.ID,
		Type:      n.Type,
		Metadata:  rawMD,
		Highlight: n.Highlight,
	})
}

// UnmarshalJSON decodes the node and dispatches the metadata union on the
// type tag. Unknown node types fail the decode.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	md, err := decodeMetadata(w.Type, w.Metadata)
	if err != nil {
		return fmt.Errorf("node %q: %w", w.ID, err)
	}
	n.ID = w.ID
	n.Type = w.Type
	n.Metadata = md
	n.Highlight = w.Highlight
	return nil
}

// clone returns a deep copy safe to hand outside the store.
func (n Node) clone() Node {
	if n.Metadata != nil {
		n.Metadata = n.Metadata.clone()
	}
	return n
}

// Edge represents a directed relationship between two nodes. Source and
// target are node ids and may dangle; integrity is checked at read time.
type Edge struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Type      EdgeType `json:"type"`
	Highlight int      `json:"highlight"`
}

// NodeInput describes one node in an AddNodes batch. Metadata may be nil,
// in which case the type's empty default is stored. Highlight nil leaves
// an existing node's highlight untouched on upsert.
type NodeInput struct {
	ID        string
	Type      NodeType
	Metadata  Metadata
	Highlight *int
}

// UnmarshalJSON decodes a caller-supplied node, reporting metadata shape
// mismatches as a ValidationError. A missing highlight field stays nil so
// upserts keep existing highlight state.
func (in *NodeInput) UnmarshalJSON(data []byte) error {
	var w struct {
		ID        string          `json:"id"`
		Type      NodeType        `json:"type"`
		Metadata  json.RawMessage `json:"metadata"`
		Highlight *int            `json:"highlight"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	in.ID = w.ID
	in.Type = w.Type
	in.Highlight = w.Highlight
	in.Metadata = nil
	if len(w.Metadata) == 0 || bytes.Equal(w.Metadata, []byte("null")) {
		return nil
	}
	md, err := decodeMetadata(w.Type, w.Metadata)
	if err != nil {
		return &ValidationError{Index: -1, Field: "metadata", Reason: err.Error()}
	}
	in.Metadata = md
	return nil
}

// EdgeInput describes one edge in an AddEdges batch. ID may be empty, in
// which case the store assigns edge_<n> from its counter. Highlight nil
// leaves an existing edge's highlight untouched on upsert.
type EdgeInput struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Type      EdgeType `json:"type"`
	Highlight *int     `json:"highlight"`
}

// DocumentVersion is the current version of the graph document format.
const DocumentVersion = "1.0"

// GraphMeta describes the persisted document. GraphID is assigned once
// when the graph is first created and survives reloads.
type GraphMeta struct {
	Version     string    `json:"version"`
	GraphID     string    `json:"graph_id"`
	GeneratedAt time.Time `json:"generated_at"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
}

// Snapshot is a point-in-time copy of the whole graph: every node and
// edge in insertion order plus the highlight-question table. It is also
// the persisted document shape.
type Snapshot struct {
	Meta               GraphMeta         `json:"_metadata"`
	Nodes              []Node            `json:"nodes"`
	Edges              []Edge            `json:"edges"`
	HighlightQuestions map[string]string `json:"highlightQuestions"`
}

// Question returns the stored question for a highlight color, if any.
func (s *Snapshot) Question(color int) (string, bool) {
	q, ok := s.HighlightQuestions[strconv.Itoa(color)]
	return q, ok
}
