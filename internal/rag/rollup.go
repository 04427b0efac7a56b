package rag

import "github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"

// Gates holds the rolled-up signals. Cells and phases nothing contributed to
// are absent from the maps rather than defaulted.
type Gates struct {
	Workstream map[string]map[string]RAG // workstream ID -> phase ID -> signal
	Program    map[string]RAG            // phase ID -> signal
}

// Rollup aggregates task signals with worst-wins ordering.
//
// A cell's workstream gate takes its non-milestone tasks and its
// workstream_gate milestones. A phase's program gate takes every workstream
// gate in that phase and the phase's program_gate milestones. General
// milestones feed neither.
func Rollup(tasks []model.Task, taskRAG map[string]RAG) Gates {
	g := Gates{
		Workstream: make(map[string]map[string]RAG),
		Program:    make(map[string]RAG),
	}

	for i := range tasks {
		t := &tasks[i]
		r, ok := taskRAG[t.ID]
		if !ok || r == Absent {
			continue
		}
		switch {
		case !t.IsMilestone, t.MilestoneType == model.MilestoneWorkstreamGate:
			cells := g.Workstream[t.WorkstreamID]
			if cells == nil {
				cells = make(map[string]RAG)
				g.Workstream[t.WorkstreamID] = cells
			}
			cells[t.PhaseID] = Worst(cells[t.PhaseID], r)
		case t.MilestoneType == model.MilestoneProgramGate:
			g.Program[t.PhaseID] = Worst(g.Program[t.PhaseID], r)
		}
	}

	for _, cells := range g.Workstream {
		for phaseID, r := range cells {
			g.Program[phaseID] = Worst(g.Program[phaseID], r)
		}
	}

	return g
}
