package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store owns the canonical in-memory graph and applies validated
// mutations to it. Mutations persist the whole document on success;
// persistence failures are surfaced but never roll back memory. All
// methods are safe for concurrent use: mutations serialize against each
// other and against saves, reads run concurrently.
type Store interface {
	// AddNodes upserts a batch of nodes. The whole batch is validated
	// first and rejected atomically on any invalid input. On upsert the
	// node's type and metadata are replaced; its highlight is preserved
	// unless the input carries one. Returns the applied ids in input
	// order, which remain valid even when the error is a
	// PersistenceError.
	AddNodes(nodes []NodeInput) ([]string, error)

	// AddEdges upserts a batch of edges. Endpoints need not resolve to
	// existing nodes; dangling edges are recorded and reported by
	// CheckIntegrity. Inputs without an id are assigned edge_<n> from a
	// counter that never reuses a value within this store's lifetime.
	AddEdges(edges []EdgeInput) ([]string, error)

	// HighlightNodes sets the highlight color on each listed node.
	// Missing ids are reported in the result, not as an error.
	HighlightNodes(ids []string, color int) (*HighlightResult, error)

	// HighlightEdges is HighlightNodes over the edge mapping.
	HighlightEdges(ids []string, color int) (*HighlightResult, error)

	// SetHighlightQuestion records the question a highlight color is
	// answering. An empty question removes the entry.
	SetHighlightQuestion(color int, question string) error

	// ClearHighlights resets every node and edge highlight to 0 and
	// drops all highlight questions. Returns how many elements changed.
	ClearHighlights() (int, error)

	// ReadGraph returns a deep-copied point-in-time view of the graph.
	// It never touches persistence.
	ReadGraph() *Snapshot

	// Node returns a copy of the node with the given id.
	Node(id string) (Node, bool)

	// Edge returns a copy of the edge with the given id.
	Edge(id string) (Edge, bool)

	// CheckIntegrity reports dangling edges without failing: edges are
	// allowed to reference nodes that were never added.
	CheckIntegrity() *IntegrityReport

	// Stats summarizes the graph for status output.
	Stats() Stats

	// Flush persists the current state regardless of the autosave
	// setting.
	Flush() error
}

// HighlightResult reports the per-id outcome of a highlight operation.
// Missing ids are data, not an error: highlighting is best-effort.
type HighlightResult struct {
	Applied  []string `json:"applied"`
	NotFound []string `json:"not_found"`
}

// DanglingEdge identifies an edge with at least one unresolved endpoint.
type DanglingEdge struct {
	EdgeID  string   `json:"edge_id"`
	Missing []string `json:"missing"` // Endpoint ids absent from the node mapping
}

// IntegrityReport is the result of a read-time referential check.
type IntegrityReport struct {
	DanglingEdges []DanglingEdge `json:"dangling_edges"`
	MissingNodes  []string       `json:"missing_nodes"` // Sorted, unique
}

// Clean reports whether every edge endpoint resolves to a node.
func (r *IntegrityReport) Clean() bool {
	return len(r.DanglingEdges) == 0
}

// Stats summarizes graph contents.
type Stats struct {
	Nodes            int              `json:"nodes"`
	Edges            int              `json:"edges"`
	NodesByType      map[NodeType]int `json:"nodes_by_type"`
	EdgesByType      map[EdgeType]int `json:"edges_by_type"`
	HighlightedNodes int              `json:"highlighted_nodes"`
	HighlightedEdges int              `json:"highlighted_edges"`
	DanglingEdges    int              `json:"dangling_edges"`
	Questions        int              `json:"questions"`
}

// StoreOption configures a Store.
type StoreOption func(*store)

// WithoutAutosave disables persistence after each mutation. Intended for
// tests and bulk loads that call Flush explicitly.
func WithoutAutosave() StoreOption {
	return func(s *store) {
		s.autosave = false
	}
}

// store implements Store over id-keyed maps with insertion-order slices
// so the persisted document round-trips deterministically.
type store struct {
	mu       sync.RWMutex
	storage  Storage
	autosave bool

	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
	questions map[string]string
	meta      GraphMeta
	nextEdge  int // Next auto-assigned edge_<n>, never decremented
}

// NewStore creates a Store backed by st, loading any previously persisted
// document. An absent or empty document starts an empty graph; a present
// but unparseable one fails with a CorruptionError.
func NewStore(st Storage, opts ...StoreOption) (Store, error) {
	s := &store{
		storage:   st,
		autosave:  true,
		nodes:     make(map[string]*Node),
		edges:     make(map[string]*Edge),
		questions: make(map[string]string),
		nextEdge:  1,
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := st.Load()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		s.meta = GraphMeta{Version: DocumentVersion, GraphID: uuid.New().String()}
		return s, nil
	}

	s.meta = snap.Meta
	if s.meta.GraphID == "" {
		s.meta.GraphID = uuid.New().String()
	}
	for i := range snap.Nodes {
		n := snap.Nodes[i]
		if n.Metadata == nil {
			n.Metadata = EmptyMetadata(n.Type)
		}
		if _, ok := s.nodes[n.ID]; !ok {
			s.nodeOrder = append(s.nodeOrder, n.ID)
		}
		s.nodes[n.ID] = &n
	}
	for i := range snap.Edges {
		e := snap.Edges[i]
		if _, ok := s.edges[e.ID]; !ok {
			s.edgeOrder = append(s.edgeOrder, e.ID)
		}
		s.edges[e.ID] = &e
		s.bumpEdgeCounter(e.ID)
	}
	for color, question := range snap.HighlightQuestions {
		s.questions[color] = question
	}
	return s, nil
}

func (s *store) AddNodes(inputs []NodeInput) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching state, so a bad input
	// cannot leave a partial batch behind.
	for i := range inputs {
		if err := inputs[i].validate(i); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		md := in.Metadata
		if md == nil {
			md = EmptyMetadata(in.Type)
		} else {
			md = md.clone()
		}

		if existing, ok := s.nodes[in.ID]; ok {
			existing.Type = in.Type
			existing.Metadata = md
			if in.Highlight != nil {
				existing.Highlight = *in.Highlight
			}
		} else {
			n := &Node{ID: in.ID, Type: in.Type, Metadata: md}
			if in.Highlight != nil {
				n.Highlight = *in.Highlight
			}
			s.nodes[in.ID] = n
			s.nodeOrder = append(s.nodeOrder, in.ID)
		}
		ids = append(ids, in.ID)
	}

	return ids, s.saveLocked()
}

func (s *store) AddEdges(inputs []EdgeInput) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range inputs {
		if err := inputs[i].validate(i); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		id := in.ID
		if id == "" {
			id = fmt.Sprintf("edge_%d", s.nextEdge)
			s.nextEdge++
		} else {
			// Keep generated ids ahead of any caller-supplied edge_<n>.
			s.bumpEdgeCounter(id)
		}

		if existing, ok := s.edges[id]; ok {
			existing.Source = in.Source
			existing.Target = in.Target
			existing.Type = in.Type
			if in.Highlight != nil {
				existing.Highlight = *in.Highlight
			}
		} else {
			e := &Edge{ID: id, Source: in.Source, Target: in.Target, Type: in.Type}
			if in.Highlight != nil {
				e.Highlight = *in.Highlight
			}
			s.edges[id] = e
			s.edgeOrder = append(s.edgeOrder, id)
		}
		ids = append(ids, id)
	}

	return ids, s.saveLocked()
}

func (s *store) HighlightNodes(ids []string, color int) (*HighlightResult, error) {
	if color < 0 {
		return nil, &ValidationError{Index: -1, Field: "color", Reason: "must be >= 0"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &HighlightResult{Applied: []string{}, NotFound: []string{}}
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			n.Highlight = color
			res.Applied = append(res.Applied, id)
		} else {
			res.NotFound = append(res.NotFound, id)
		}
	}

	return res, s.saveLocked()
}

func (s *store) HighlightEdges(ids []string, color int) (*HighlightResult, error) {
	if color < 0 {
		return nil, &ValidationError{Index: -1, Field: "color", Reason: "must be >= 0"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &HighlightResult{Applied: []string{}, NotFound: []string{}}
	for _, id := range ids {
		if e, ok := s.edges[id]; ok {
			e.Highlight = color
			res.Applied = append(res.Applied, id)
		} else {
			res.NotFound = append(res.NotFound, id)
		}
	}

	return res, s.saveLocked()
}

func (s *store) SetHighlightQuestion(color int, question string) error {
	if color < 0 {
		return &ValidationError{Index: -1, Field: "color", Reason: "must be >= 0"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strconv.Itoa(color)
	if question == "" {
		delete(s.questions, key)
	} else {
		s.questions[key] = question
	}

	return s.saveLocked()
}

func (s *store) ClearHighlights() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for _, n := range s.nodes {
		if n.Highlight != 0 {
			n.Highlight = 0
			cleared++
		}
	}
	for _, e := range s.edges {
		if e.Highlight != 0 {
			e.Highlight = 0
			cleared++
		}
	}
	clear(s.questions)

	return cleared, s.saveLocked()
}

func (s *store) ReadGraph() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

func (s *store) Edge(id string) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

func (s *store) CheckIntegrity() *IntegrityReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := &IntegrityReport{}
	seen := make(map[string]bool)
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		var missing []string
		if _, ok := s.nodes[e.Source]; !ok {
			missing = append(missing, e.Source)
		}
		if e.Target != e.Source {
			if _, ok := s.nodes[e.Target]; !ok {
				missing = append(missing, e.Target)
			}
		}
		if len(missing) == 0 {
			continue
		}
		report.DanglingEdges = append(report.DanglingEdges, DanglingEdge{EdgeID: id, Missing: missing})
		for _, m := range missing {
			if !seen[m] {
				seen[m] = true
				report.MissingNodes = append(report.MissingNodes, m)
			}
		}
	}
	sort.Strings(report.MissingNodes)

	return report
}

func (s *store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Nodes:       len(s.nodes),
		Edges:       len(s.edges),
		NodesByType: make(map[NodeType]int),
		EdgesByType: make(map[EdgeType]int),
		Questions:   len(s.questions),
	}
	for _, n := range s.nodes {
		st.NodesByType[n.Type]++
		if n.Highlight != 0 {
			st.HighlightedNodes++
		}
	}
	for _, e := range s.edges {
		st.EdgesByType[e.Type]++
		if e.Highlight != 0 {
			st.HighlightedEdges++
		}
		_, srcOK := s.nodes[e.Source]
		_, tgtOK := s.nodes[e.Target]
		if !srcOK || !tgtOK {
			st.DanglingEdges++
		}
	}

	return st
}

func (s *store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	if err := s.storage.Save(snap); err != nil {
		return err
	}
	s.meta = snap.Meta
	return nil
}

// snapshotLocked builds a deep copy of the current state. Callers hold at
// least the read lock.
func (s *store) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		Meta:               s.meta,
		Nodes:              make([]Node, 0, len(s.nodeOrder)),
		Edges:              make([]Edge, 0, len(s.edgeOrder)),
		HighlightQuestions: make(map[string]string, len(s.questions)),
	}
	snap.Meta.NodeCount = len(s.nodeOrder)
	snap.Meta.EdgeCount = len(s.edgeOrder)
	for _, id := range s.nodeOrder {
		snap.Nodes = append(snap.Nodes, s.nodes[id].clone())
	}
	for _, id := range s.edgeOrder {
		snap.Edges = append(snap.Edges, *s.edges[id])
	}
	for color, question := range s.questions {
		snap.HighlightQuestions[color] = question
	}
	return snap
}

// saveLocked persists the current state when autosave is on. Callers hold
// the write lock. The applied mutation stays in memory even when the save
// fails; the PersistenceError tells the caller memory and disk diverged.
func (s *store) saveLocked() error {
	if !s.autosave {
		return nil
	}
	snap := s.snapshotLocked()
	if err := s.storage.Save(snap); err != nil {
		return err
	}
	s.meta = snap.Meta
	return nil
}

// bumpEdgeCounter advances the auto-id counter past a caller-supplied
// edge_<n> id so generated ids can never collide with it.
func (s *store) bumpEdgeCounter(id string) {
	rest, ok := strings.CutPrefix(id, "edge_")
	if !ok {
		return
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return
	}
	if n >= s.nextEdge {
		s.nextEdge = n + 1
	}
}

// validate checks one AddNodes input. index is the input's position in
// the batch, reported in the ValidationError.
func (in *NodeInput) validate(index int) error {
	if in.ID == "" {
		return &ValidationError{Index: index, Field: "id", Reason: "must be a non-empty string"}
	}
	if !ValidNodeType(in.Type) {
		return &ValidationError{Index: index, Field: "type", Reason: fmt.Sprintf("unknown node type %q", in.Type)}
	}
	if in.Metadata != nil && in.Metadata.nodeType() != in.Type {
		return &ValidationError{
			Index:  index,
			Field:  "metadata",
			Reason: fmt.Sprintf("metadata shape is for %q nodes, not %q", in.Metadata.nodeType(), in.Type),
		}
	}
	if in.Highlight != nil && *in.Highlight < 0 {
		return &ValidationError{Index: index, Field: "highlight", Reason: "color must be >= 0"}
	}
	return nil
}

// validate checks one AddEdges input.
func (in *EdgeInput) validate(index int) error {
	if in.Source == "" {
		return &ValidationError{Index: index, Field: "source", Reason: "must be a non-empty node id"}
	}
	if in.Target == "" {
		return &ValidationError{Index: index, Field: "target", Reason: "must be a non-empty node id"}
	}
	if !ValidEdgeType(in.Type) {
		return &ValidationError{Index: index, Field: "type", Reason: fmt.Sprintf("unknown edge type %q", in.Type)}
	}
	if in.Highlight != nil && *in.Highlight < 0 {
		return &ValidationError{Index: index, Field: "highlight", Reason: "color must be >= 0"}
	}
	return nil
}
