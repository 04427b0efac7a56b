// Package model holds the records the scheduling engine reads from the
// strategy store. The engine never writes these; it only derives schedule
// and status values from them.
package model

import "time"

// Task is a unit of work in exactly one (workstream, phase) cell.
type Task struct {
	ID              string        `json:"id"`
	WorkstreamID    string        `json:"workstreamId"`
	PhaseID         string        `json:"phaseId"`
	Name            string        `json:"name"`
	PlannedStart    *time.Time    `json:"plannedStart,omitempty"`
	PlannedEnd      *time.Time    `json:"plannedEnd,omitempty"`
	ActualStart     *time.Time    `json:"actualStart,omitempty"`
	ActualEnd       *time.Time    `json:"actualEnd,omitempty"`
	DurationDays    int           `json:"durationDays"`
	PercentComplete int           `json:"percentComplete"`
	Status          TaskStatus    `json:"status"`
	IsMilestone     bool          `json:"isMilestone"`
	MilestoneType   MilestoneType `json:"milestoneType,omitempty"`
}

// IsGate reports whether the task is a workstream or program gate milestone.
func (t *Task) IsGate() bool {
	return t.IsMilestone && (t.MilestoneType == MilestoneWorkstreamGate || t.MilestoneType == MilestoneProgramGate)
}

// Completed reports whether the task has an actual end date. Status and
// percent complete alone do not count.
func (t *Task) Completed() bool {
	return t.ActualEnd != nil
}

// Dependency is a typed precedence edge between two tasks.
type Dependency struct {
	PredecessorID string         `json:"predecessorTaskId"`
	SuccessorID   string         `json:"successorTaskId"`
	Type          DependencyType `json:"type"`
	LagDays       int            `json:"lagDays"`
}

// Workstream groups tasks; it does not take part in scheduling.
type Workstream struct {
	ID         string `json:"id"`
	StrategyID string `json:"strategyId"`
	Name       string `json:"name"`
	Lead       string `json:"lead,omitempty"`
	SortOrder  int    `json:"sortOrder"`
}

// Phase is the second grouping axis. Its dates are display context only.
type Phase struct {
	ID           string     `json:"id"`
	StrategyID   string     `json:"strategyId"`
	Name         string     `json:"name"`
	Sequence     int        `json:"sequence"`
	PlannedStart *time.Time `json:"plannedStart,omitempty"`
	PlannedEnd   *time.Time `json:"plannedEnd,omitempty"`
}

// GateCriterion is a readiness check attached to a gate milestone.
type GateCriterion struct {
	ID          string `json:"id"`
	TaskID      string `json:"taskId"`
	Description string `json:"description"`
	IsMet       bool   `json:"isMet"`
	Evidence    string `json:"evidence,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// Snapshot is everything loaded for one strategy in a single read.
type Snapshot struct {
	StrategyID   string          `json:"strategyId"`
	Workstreams  []Workstream    `json:"workstreams"`
	Phases       []Phase         `json:"phases"`
	Tasks        []Task          `json:"tasks"`
	Dependencies []Dependency    `json:"dependencies"`
	Criteria     []GateCriterion `json:"gateCriteria"`
}

// CriteriaByTask groups gate criteria by their owning task.
func (s *Snapshot) CriteriaByTask() map[string][]GateCriterion {
	out := make(map[string][]GateCriterion)
	for _, c := range s.Criteria {
		out[c.TaskID] = append(out[c.TaskID], c)
	}
	return out
}

// Schedule is the cached schedule the engine may write back onto a task row.
type Schedule struct {
	TaskID      string
	EarlyStart  int
	EarlyFinish int
	LateStart   int
	LateFinish  int
	TotalFloat  int
	IsCritical  bool
}
