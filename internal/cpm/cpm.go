package cpm

import (
	"fmt"
	"sort"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/graph"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
)

// Analyze performs critical path method analysis on a task graph.
//
// Every dependency type is reduced to a floor on the successor's start or
// finish (forward pass) and a ceiling on the predecessor's finish (backward
// pass). A task's duration is never stretched: a finish floor moves the start.
func Analyze(g *graph.TaskGraph) (*CPMResult, error) {
	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}

	n := len(g.Nodes)
	es := make([]int, n)
	ef := make([]int, n)
	ls := make([]int, n)
	lf := make([]int, n)

	// Forward pass: compute ES and EF
	for _, j := range order {
		dur := g.Nodes[j].Task.DurationDays
		start := 0
		for _, e := range g.Nodes[j].In {
			edge := g.Edges[e]
			i := edge.From
			var floor int
			switch edge.Type {
			case model.FinishToStart:
				floor = ef[i] + edge.Lag
			case model.StartToStart:
				floor = es[i] + edge.Lag
			case model.FinishToFinish:
				floor = ef[i] + edge.Lag - dur
			case model.StartToFinish:
				floor = es[i] + edge.Lag - dur
			}
			if floor > start {
				start = floor
			}
		}
		es[j] = start
		ef[j] = start + dur
	}

	// Total project duration, over all tasks in case of dangling terminals
	projectFinish := 0
	for j := range ef {
		if ef[j] > projectFinish {
			projectFinish = ef[j]
		}
	}

	// Backward pass: compute LS and LF in reverse topological order
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		dur := g.Nodes[i].Task.DurationDays
		finish := projectFinish
		for _, e := range g.Nodes[i].Out {
			edge := g.Edges[e]
			j := edge.To
			var ceil int
			switch edge.Type {
			case model.FinishToStart:
				ceil = ls[j] - edge.Lag
			case model.StartToStart:
				ceil = ls[j] - edge.Lag + dur
			case model.FinishToFinish:
				ceil = lf[j] - edge.Lag
			case model.StartToFinish:
				ceil = lf[j] - edge.Lag + dur
			}
			if ceil < finish {
				finish = ceil
			}
		}
		lf[i] = finish
		ls[i] = finish - dur
	}

	result := &CPMResult{
		Tasks:         make(map[string]*TaskSchedule, n),
		ProjectFinish: projectFinish,
		TopoOrder:     make([]string, 0, n),
	}

	for _, i := range order {
		id := g.ID(i)
		startFloat := ls[i] - es[i]
		finishFloat := lf[i] - ef[i]
		if startFloat != finishFloat {
			return nil, fmt.Errorf("%w: task %s has start float %d and finish float %d", ErrInconsistentFloat, id, startFloat, finishFloat)
		}
		result.Tasks[id] = &TaskSchedule{
			TaskID:     id,
			Duration:   g.Nodes[i].Task.DurationDays,
			ES:         es[i],
			EF:         ef[i],
			LS:         ls[i],
			LF:         lf[i],
			TotalFloat: startFloat,
			IsCritical: startFloat == 0,
		}
		result.TopoOrder = append(result.TopoOrder, id)
		if startFloat == 0 {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}

	result.Waves = computeWaves(result)

	return result, nil
}

// Schedules flattens the result into write-back records, sorted by task ID.
func (r *CPMResult) Schedules() []model.Schedule {
	out := make([]model.Schedule, 0, len(r.Tasks))
	for _, ts := range r.Tasks {
		out = append(out, model.Schedule{
			TaskID:      ts.TaskID,
			EarlyStart:  ts.ES,
			EarlyFinish: ts.EF,
			LateStart:   ts.LS,
			LateFinish:  ts.LF,
			TotalFloat:  ts.TotalFloat,
			IsCritical:  ts.IsCritical,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// computeWaves groups tasks by their earliest start time.
func computeWaves(result *CPMResult) []Wave {
	esGroups := make(map[int][]string)
	for _, id := range result.TopoOrder {
		es := result.Tasks[id].ES
		esGroups[es] = append(esGroups[es], id)
	}

	esValues := make([]int, 0, len(esGroups))
	for es := range esGroups {
		esValues = append(esValues, es)
	}
	sort.Ints(esValues)

	waves := make([]Wave, len(esValues))
	for i, es := range esValues {
		taskIDs := esGroups[es]
		sort.Strings(taskIDs)

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Critical tasks first within a wave
		sort.SliceStable(taskIDs, func(a, b int) bool {
			return result.Tasks[taskIDs[a]].IsCritical && !result.Tasks[taskIDs[b]].IsCritical
		})

		waves[i] = Wave{
			Index:      i,
			Start:      es,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}
