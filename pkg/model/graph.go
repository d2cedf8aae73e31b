package model

import "sort"

// Fragment is the part of a mesh connectivity graph known to one rank
// before finalize. It is the common data model for every fragment source.
type Fragment struct {
	Rank  int         `json:"rank"`
	Nodes []NodeClaim `json:"nodes"`
	Edges []EdgeClaim `json:"edges"`
}

// NodeClaim is a rank's claim that Owner owns node ID.
type NodeClaim struct {
	ID     int64   `json:"id"`
	Owner  int     `json:"owner"`
	Weight float64 `json:"weight,omitempty"` // zero means unit weight
}

// EdgeClaim is an edge a rank knows about.
type EdgeClaim struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// NewFragment creates an empty fragment for rank.
func NewFragment(rank int) *Fragment {
	return &Fragment{
		Rank:  rank,
		Nodes: make([]NodeClaim, 0),
		Edges: make([]EdgeClaim, 0),
	}
}

// AddNode appends a node claim.
func (f *Fragment) AddNode(id int64, owner int) {
	f.Nodes = append(f.Nodes, NodeClaim{ID: id, Owner: owner})
}

// AddEdge appends an edge claim.
func (f *Fragment) AddEdge(from, to int64) {
	f.Edges = append(f.Edges, EdgeClaim{From: from, To: to})
}

// Input is a complete build input: one fragment per rank.
type Input struct {
	Source    string      `json:"source"` // e.g. "grid 4x4x2" or a file path
	Fragments []*Fragment `json:"fragments"`
}

// Ranks returns the number of fragments.
func (in *Input) Ranks() int { return len(in.Fragments) }

// NodeCount returns the number of distinct claimed node ids.
func (in *Input) NodeCount() int {
	seen := make(map[int64]struct{})
	for _, f := range in.Fragments {
		for _, n := range f.Nodes {
			seen[n.ID] = struct{}{}
		}
	}
	return len(seen)
}

// RankReport summarizes one rank's finalized graph.
type RankReport struct {
	Rank     int     `json:"rank"`
	Owned    int     `json:"owned"`
	Ghosts   int     `json:"ghosts"`
	Edges    int     `json:"edges"`
	OwnedIDs []int64 `json:"ownedIds"`
	GhostIDs []int64 `json:"ghostIds"`
}

// NodeView describes one local node as seen from a rank.
type NodeView struct {
	ID         int64   `json:"id"`
	LocalIndex int     `json:"localIndex"`
	Owner      int     `json:"owner"`
	Ghost      bool    `json:"ghost"`
	Neighbors  []int64 `json:"neighbors"`
}

// RunReport summarizes one build.
type RunReport struct {
	RunID       string       `json:"runId"`
	Source      string       `json:"source"`
	Partitioner string       `json:"partitioner"`
	Directed    bool         `json:"directed"`
	DurationMs  int64        `json:"durationMs"`
	Error       string       `json:"error,omitempty"`
	FailedRank  *int         `json:"failedRank,omitempty"`
	FailedIDs   []int64      `json:"failedIds,omitempty"`
	Ranks       []RankReport `json:"ranks"`
}

// TotalOwned returns the number of owned nodes across ranks.
func (r *RunReport) TotalOwned() int {
	n := 0
	for _, rr := range r.Ranks {
		n += rr.Owned
	}
	return n
}

// SortRanks orders rank reports by rank.
func (r *RunReport) SortRanks() {
	sort.Slice(r.Ranks, func(i, j int) bool { return r.Ranks[i].Rank < r.Ranks[j].Rank })
}
