package engine

import (
	"sort"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/cpm"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/graph"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/rag"
)

// Result is the computed view of one strategy. Every map is non-nil; a task,
// cell or phase missing from a map has no signal.
type Result struct {
	StrategyID        string                        `json:"strategyId"`
	AsOf              string                        `json:"asOf"`
	ProjectStart      string                        `json:"projectStart"`
	ProjectFinishDays int                           `json:"projectFinishDays"`
	TaskRAG           map[string]rag.RAG            `json:"taskRag"`
	WorkstreamGateRAG map[string]map[string]rag.RAG `json:"workstreamGateRag"`
	ProgramGateRAG    map[string]rag.RAG            `json:"programGateRag"`
	CriticalPath      map[string]Float              `json:"criticalPath"`
	Schedule          map[string]Window             `json:"schedule"`
	GateReadiness     map[string]Readiness          `json:"gateReadiness"`
	Anomalies         []graph.Anomaly               `json:"anomalies"`

	// Reasons names the classifier rule behind each task signal.
	Reasons map[string]rag.Reason `json:"-"`
	// Chain lists the critical task IDs in topological order.
	Chain []string `json:"-"`
	// Waves groups tasks by early start.
	Waves []cpm.Wave `json:"-"`
}

// Float is a task's slack and criticality.
type Float struct {
	IsCritical bool `json:"isCritical"`
	TotalFloat int  `json:"totalFloat"`
}

// Window is a task's computed start/finish window in day offsets.
type Window struct {
	EarlyStart  int `json:"earlyStart"`
	EarlyFinish int `json:"earlyFinish"`
	LateStart   int `json:"lateStart"`
	LateFinish  int `json:"lateFinish"`
}

// Readiness counts the met gate criteria of a milestone.
type Readiness struct {
	Met   int `json:"met"`
	Total int `json:"total"`
}

// Schedules flattens the schedule for write-back, ordered by task ID.
func (r *Result) Schedules() []model.Schedule {
	out := make([]model.Schedule, 0, len(r.Schedule))
	for id, w := range r.Schedule {
		f := r.CriticalPath[id]
		out = append(out, model.Schedule{
			TaskID:      id,
			EarlyStart:  w.EarlyStart,
			EarlyFinish: w.EarlyFinish,
			LateStart:   w.LateStart,
			LateFinish:  w.LateFinish,
			TotalFloat:  f.TotalFloat,
			IsCritical:  f.IsCritical,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}
