package graph

import "sort"

// TopoSort performs Kahn's algorithm and returns node indices such that every
// predecessor precedes every successor. Ties are broken by task ID.
//
// The cycle check runs first so a failure always names a task on the cycle.
func (g *TaskGraph) TopoSort() ([]int, error) {
	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}
	return g.kahn()
}

// kahn orders the nodes. If edges remain, the tasks left unsorted are
// reported as the cycle.
func (g *TaskGraph) kahn() ([]int, error) {
	inDegree := make([]int, len(g.Nodes))
	for i := range g.Nodes {
		inDegree[i] = len(g.Nodes[i].In)
	}

	// Node indices follow task ID order, so sorting indices sorts by ID.
	var queue []int
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []int
		for _, e := range g.Nodes[node].Out {
			succ := g.Edges[e].To
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Ints(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(g.Nodes) {
		var stuck []string
		for i, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, g.ID(i))
			}
		}
		return nil, &CycleError{Path: stuck}
	}

	return order, nil
}

// TopoIDs is TopoSort expressed in task IDs.
func (g *TaskGraph) TopoIDs() ([]string, error) {
	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(order))
	for i, n := range order {
		ids[i] = g.ID(n)
	}
	return ids, nil
}
