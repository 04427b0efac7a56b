package graph

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
)

// Build constructs a TaskGraph from a strategy snapshot.
//
// Tasks are copied, so the snapshot is never modified. Dependencies that
// cannot be used (unknown endpoint, duplicate ordered pair, bad type) are
// dropped with a warning and recorded in Anomalies. A cycle, including a self
// loop, is fatal and returned as a *CycleError.
func Build(snap *model.Snapshot, logger *slog.Logger) (*TaskGraph, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tasks := make([]model.Task, 0, len(snap.Tasks))
	seen := make(map[string]bool, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if seen[t.ID] {
			logger.Warn("duplicate task id ignored", "task_id", t.ID)
			continue
		}
		seen[t.ID] = true
		if t.DurationDays < 0 {
			logger.Warn("negative duration clamped to zero", "task_id", t.ID, "duration_days", t.DurationDays)
			t.DurationDays = 0
		}
		if t.IsMilestone && t.DurationDays != 0 {
			logger.Warn("milestone duration forced to zero", "task_id", t.ID, "duration_days", t.DurationDays)
			t.DurationDays = 0
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	g := &TaskGraph{
		Nodes: make([]Node, len(tasks)),
		Index: make(map[string]int, len(tasks)),
	}
	for i := range tasks {
		g.Nodes[i] = Node{Task: &tasks[i]}
		g.Index[tasks[i].ID] = i
	}

	// Sort a copy of the edges so the input order never affects which
	// duplicate survives or how adjacency lists are ordered.
	deps := slices.Clone(snap.Dependencies)
	slices.SortStableFunc(deps, func(a, b model.Dependency) int {
		return cmp.Or(
			cmp.Compare(a.PredecessorID, b.PredecessorID),
			cmp.Compare(a.SuccessorID, b.SuccessorID),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.LagDays, b.LagDays),
		)
	})

	edgeSet := make(map[[2]int]bool)
	for _, d := range deps {
		from, okFrom := g.Index[d.PredecessorID]
		to, okTo := g.Index[d.SuccessorID]
		if !okFrom || !okTo {
			missing := d.PredecessorID
			if okFrom {
				missing = d.SuccessorID
			}
			err := &EndpointError{PredecessorID: d.PredecessorID, SuccessorID: d.SuccessorID, Missing: missing}
			g.drop(logger, AnomalyUnknownEndpoint, d, err.Error())
			continue
		}
		if !d.Type.Valid() {
			g.drop(logger, AnomalyInvalidType, d, fmt.Sprintf("dependency type %q", d.Type))
			continue
		}
		key := [2]int{from, to}
		if edgeSet[key] {
			g.drop(logger, AnomalyDuplicateEdge, d, "an edge for this ordered pair already exists")
			continue
		}
		edgeSet[key] = true

		idx := len(g.Edges)
		g.Edges = append(g.Edges, Edge{From: from, To: to, Type: d.Type, Lag: d.LagDays})
		g.Nodes[from].Out = append(g.Nodes[from].Out, idx)
		g.Nodes[to].In = append(g.Nodes[to].In, idx)
	}

	for i := range g.Nodes {
		if len(g.Nodes[i].In) == 0 {
			g.Roots = append(g.Roots, i)
		}
		if len(g.Nodes[i].Out) == 0 {
			g.Leaves = append(g.Leaves, i)
		}
	}

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	return g, nil
}

func (g *TaskGraph) drop(logger *slog.Logger, kind AnomalyKind, d model.Dependency, detail string) {
	logger.Warn("dependency dropped",
		"kind", string(kind),
		"predecessor_task_id", d.PredecessorID,
		"successor_task_id", d.SuccessorID,
		"detail", detail)
	g.Anomalies = append(g.Anomalies, Anomaly{
		Kind:          kind,
		PredecessorID: d.PredecessorID,
		SuccessorID:   d.SuccessorID,
		Detail:        detail,
	})
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
// Nodes are already sorted by ID, so detection is deterministic.
func (g *TaskGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.Nodes))
	parent := make([]int, len(g.Nodes))

	var dfs func(node int) []string
	dfs = func(node int) []string {
		color[node] = gray
		for _, e := range g.Nodes[node].Out {
			next := g.Edges[e].To
			if color[next] == gray {
				// Found a cycle: walk parents back to next
				cycle := []string{g.ID(next), g.ID(node)}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, g.ID(cur))
				}
				slices.Reverse(cycle)
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for i := range g.Nodes {
		if color[i] == white {
			if cycle := dfs(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// ID returns the task ID of node i.
func (g *TaskGraph) ID(i int) string {
	return g.Nodes[i].Task.ID
}

// Task returns the task with the given ID, or nil.
func (g *TaskGraph) Task(id string) *model.Task {
	i, ok := g.Index[id]
	if !ok {
		return nil
	}
	return g.Nodes[i].Task
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Nodes)
}

// Predecessors returns the IDs of the direct predecessors of a task, sorted.
func (g *TaskGraph) Predecessors(id string) []string {
	i, ok := g.Index[id]
	if !ok {
		return nil
	}
	var out []string
	for _, e := range g.Nodes[i].In {
		out = append(out, g.ID(g.Edges[e].From))
	}
	sort.Strings(out)
	return out
}

// Successors returns the IDs of the direct successors of a task, sorted.
func (g *TaskGraph) Successors(id string) []string {
	i, ok := g.Index[id]
	if !ok {
		return nil
	}
	var out []string
	for _, e := range g.Nodes[i].Out {
		out = append(out, g.ID(g.Edges[e].To))
	}
	sort.Strings(out)
	return out
}
