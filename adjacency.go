package epinet

// EdgeTag describes how an edge was created, per spec.md §3.
type EdgeTag uint8

const (
	EdgeHousehold EdgeTag = iota
	EdgeWork
	EdgeOther
)

func (t EdgeTag) String() string {
	switch t {
	case EdgeHousehold:
		return "household"
	case EdgeWork:
		return "work"
	case EdgeOther:
		return "other"
	default:
		return "unknown"
	}
}

// edgeEntry is one ragged-adjacency-list entry: neighbor index, edge
// tag, and the current per-edge infection rate. Sized to match the
// memory budget in spec.md §5 (4-byte index + 1-byte tag + 4-byte rate).
type edgeEntry struct {
	Neighbor int32
	Tag      EdgeTag
	Rate     float32
}

// RaggedAdjacency is the compact per-agent variable-length neighbor
// store described in spec.md §2 item 3 and §9's "Ragged adjacency" note:
// a slice-of-slices holds the edge entries, so neighbor iteration is a
// plain slice scan. Each agent also has a map from neighbor to position
// (index below), so every edge additionally costs one Go map entry.
// Edge "removal" during a run is
// modeled as Rate=0 (neutralization, spec.md §3's lifecycle rule); the
// structure itself only grows during network construction.
type RaggedAdjacency struct {
	rows [][]edgeEntry
	// index[a][b] gives the position of b within rows[a], enabling O(1)
	// reciprocal-edge lookup (needed by the engine's I5 repair step)
	// without scanning the neighbor list.
	index []map[int32]int32
}

// NewRaggedAdjacency allocates a ragged adjacency store for n agents.
func NewRaggedAdjacency(n int) *RaggedAdjacency {
	return &RaggedAdjacency{
		rows:  make([][]edgeEntry, n),
		index: make([]map[int32]int32, n),
	}
}

// N returns the number of agents (rows) in the store.
func (a *RaggedAdjacency) N() int {
	return len(a.rows)
}

// Degree returns the number of neighbors of agent id.
func (a *RaggedAdjacency) Degree(id int) int {
	return len(a.rows[id])
}

// Neighbors returns the (read-only view of the) neighbor list of agent id.
// Callers must not retain the slice across mutations of the store.
func (a *RaggedAdjacency) Neighbors(id int) []edgeEntry {
	return a.rows[id]
}

// HasEdge reports whether a one-way edge id->neighbor already exists.
func (a *RaggedAdjacency) HasEdge(id, neighbor int) bool {
	if a.index[id] == nil {
		return false
	}
	_, ok := a.index[id][int32(neighbor)]
	return ok
}

// appendOne appends a single directed edge id->neighbor with the given
// tag and initial rate 0, and records it in the reciprocal-lookup index.
func (a *RaggedAdjacency) appendOne(id, neighbor int, tag EdgeTag) {
	if a.index[id] == nil {
		a.index[id] = make(map[int32]int32)
	}
	pos := int32(len(a.rows[id]))
	a.rows[id] = append(a.rows[id], edgeEntry{Neighbor: int32(neighbor), Tag: tag, Rate: 0})
	a.index[id][int32(neighbor)] = pos
}

// AddBiEdge adds a reciprocal pair of edges a-b and b-a with the given
// tag, both starting at rate 0 (populated only when an endpoint becomes
// infectious, per spec.md §4.2/§4.3). No-op if either direction already
// exists, reporting false.
func (a *RaggedAdjacency) AddBiEdge(x, y int, tag EdgeTag) bool {
	if x == y || a.HasEdge(x, y) || a.HasEdge(y, x) {
		return false
	}
	a.appendOne(x, y, tag)
	a.appendOne(y, x, tag)
	return true
}

// SetRateAt sets the rate of the edge at the given position within
// agent id's neighbor list.
func (a *RaggedAdjacency) SetRateAt(id int, pos int32, rate float64) {
	a.rows[id][pos].Rate = float32(rate)
}

// RateTo returns the current rate of the edge id->neighbor and whether
// it exists.
func (a *RaggedAdjacency) RateTo(id, neighbor int) (float64, bool) {
	if a.index[id] == nil {
		return 0, false
	}
	pos, ok := a.index[id][int32(neighbor)]
	if !ok {
		return 0, false
	}
	return float64(a.rows[id][pos].Rate), true
}

// SetRateTo sets the rate of the edge id->neighbor if it exists,
// returning false if the edge does not exist.
func (a *RaggedAdjacency) SetRateTo(id, neighbor int, rate float64) bool {
	if a.index[id] == nil {
		return false
	}
	pos, ok := a.index[id][int32(neighbor)]
	if !ok {
		return false
	}
	a.rows[id][pos].Rate = float32(rate)
	return true
}

// TotalEdges returns the total number of directed entries across all
// rows, i.e. 2*|undirected edges| once only AddBiEdge has been used.
func (a *RaggedAdjacency) TotalEdges() int {
	total := 0
	for _, row := range a.rows {
		total += len(row)
	}
	return total
}
