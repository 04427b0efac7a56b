package cpm

import "errors"

// ErrInconsistentFloat signals LS-ES != LF-EF for some task. It is a defect in
// the pass arithmetic, never a user error.
var ErrInconsistentFloat = errors.New("inconsistent float")

// CPMResult holds the complete critical path analysis. Times are day offsets
// from the project start (day 0).
type CPMResult struct {
	Tasks         map[string]*TaskSchedule
	CriticalPath  []string // critical task IDs in topological order
	ProjectFinish int
	Waves         []Wave // tasks grouped by early start
	TopoOrder     []string
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string
	Duration   int
	ES, EF     int // earliest start/finish
	LS, LF     int // latest start/finish
	TotalFloat int
	IsCritical bool
	Wave       int // which early-start wave this belongs to
}

// Wave is a group of tasks sharing the same early start.
type Wave struct {
	Index      int
	Start      int
	TaskIDs    []string
	IsCritical bool // true if wave contains critical path tasks
}
