package graph

import "github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"

// Node is a task in the graph, addressed by its index in TaskGraph.Nodes.
type Node struct {
	Task *model.Task
	Out  []int // indices into TaskGraph.Edges, towards successors
	In   []int // indices into TaskGraph.Edges, from predecessors
}

// Edge is a typed precedence constraint between two node indices.
type Edge struct {
	From int
	To   int
	Type model.DependencyType
	Lag  int
}

// TaskGraph is an arena-indexed directed graph of tasks. Nodes are sorted by
// task ID so that index order is deterministic.
type TaskGraph struct {
	Nodes     []Node
	Edges     []Edge
	Index     map[string]int // task ID -> node index
	Roots     []int          // nodes with no predecessors
	Leaves    []int          // nodes with no successors
	Anomalies []Anomaly      // edges dropped while building
}

// AnomalyKind classifies a dependency that was dropped during Build.
type AnomalyKind string

const (
	AnomalyUnknownEndpoint AnomalyKind = "unknown_endpoint"
	AnomalyDuplicateEdge   AnomalyKind = "duplicate_edge"
	AnomalyInvalidType     AnomalyKind = "invalid_type"
)

// Anomaly records a dependency that could not be used. The rest of the graph
// is still scheduled.
type Anomaly struct {
	Kind          AnomalyKind `json:"kind"`
	PredecessorID string      `json:"predecessorTaskId"`
	SuccessorID   string      `json:"successorTaskId"`
	Detail        string      `json:"detail"`
}
