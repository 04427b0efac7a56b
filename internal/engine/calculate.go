package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/cpm"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/graph"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/rag"
)

// Calculate runs the whole pipeline over a snapshot: graph, forward and
// backward pass, task signals, gate rollup. It is pure; asOf is the only
// notion of "today" it sees. A cycle or an arithmetic defect fails the whole
// computation and no partial result is returned.
func Calculate(snap *model.Snapshot, asOf time.Time, policy rag.Policy, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g, err := graph.Build(snap, logger)
	if err != nil {
		return nil, fmt.Errorf("build graph for strategy %s: %w", snap.StrategyID, err)
	}

	sched, err := cpm.Analyze(g)
	if err != nil {
		return nil, fmt.Errorf("schedule strategy %s: %w", snap.StrategyID, err)
	}

	asOf = model.DateOf(asOf)
	anchor := projectStart(g, asOf)

	res := &Result{
		StrategyID:        snap.StrategyID,
		AsOf:              asOf.Format(model.DateLayout),
		ProjectStart:      anchor.Format(model.DateLayout),
		ProjectFinishDays: sched.ProjectFinish,
		TaskRAG:           make(map[string]rag.RAG, len(g.Nodes)),
		CriticalPath:      make(map[string]Float, len(g.Nodes)),
		Schedule:          make(map[string]Window, len(g.Nodes)),
		GateReadiness:     make(map[string]Readiness),
		Anomalies:         append([]graph.Anomaly{}, g.Anomalies...),
		Reasons:           make(map[string]rag.Reason, len(g.Nodes)),
		Chain:             sched.CriticalPath,
		Waves:             sched.Waves,
	}

	criteria := snap.CriteriaByTask()
	classifier := &rag.Classifier{Policy: policy, AsOf: asOf, Anchor: anchor}
	tasks := make([]model.Task, 0, len(g.Nodes))

	for i := range g.Nodes {
		t := g.Nodes[i].Task
		ts := sched.Tasks[t.ID]
		tasks = append(tasks, *t)

		res.Schedule[t.ID] = Window{EarlyStart: ts.ES, EarlyFinish: ts.EF, LateStart: ts.LS, LateFinish: ts.LF}
		res.CriticalPath[t.ID] = Float{IsCritical: ts.IsCritical, TotalFloat: ts.TotalFloat}

		v := classifier.Classify(t, ts, criteria[t.ID])
		res.TaskRAG[t.ID] = v.RAG
		res.Reasons[t.ID] = v.Reason

		if t.IsGate() {
			gc := criteria[t.ID]
			r := Readiness{Total: len(gc)}
			for _, c := range gc {
				if c.IsMet {
					r.Met++
				}
			}
			res.GateReadiness[t.ID] = r
		}
	}

	gates := rag.Rollup(tasks, res.TaskRAG)
	res.WorkstreamGateRAG = gates.Workstream
	res.ProgramGateRAG = gates.Program

	logger.Debug("strategy computed",
		"strategy_id", snap.StrategyID,
		"tasks", len(g.Nodes),
		"edges", len(g.Edges),
		"anomalies", len(g.Anomalies),
		"project_finish_days", sched.ProjectFinish,
		"critical_tasks", len(sched.CriticalPath),
	)
	return res, nil
}

// projectStart is the calendar date of day 0: the earliest planned start of
// a root task, else of any task, else asOf.
func projectStart(g *graph.TaskGraph, asOf time.Time) time.Time {
	earliest := func(nodes []int) (time.Time, bool) {
		var best time.Time
		found := false
		for _, i := range nodes {
			ps := g.Nodes[i].Task.PlannedStart
			if ps == nil {
				continue
			}
			d := model.DateOf(*ps)
			if !found || d.Before(best) {
				best, found = d, true
			}
		}
		return best, found
	}

	if d, ok := earliest(g.Roots); ok {
		return d
	}
	all := make([]int, len(g.Nodes))
	for i := range all {
		all[i] = i
	}
	if d, ok := earliest(all); ok {
		return d
	}
	return asOf
}
