package model

import (
	"fmt"
	"strings"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusOnHold     TaskStatus = "on_hold"
	StatusBlocked    TaskStatus = "blocked"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusOnHold, StatusBlocked:
		return true
	}
	return false
}

// ParseTaskStatus accepts the stored spelling plus a few legacy variants.
// An empty value means not_started.
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	switch norm {
	case "":
		return StatusNotStarted, nil
	case "done", "complete":
		return StatusCompleted, nil
	case "inprogress":
		return StatusInProgress, nil
	case "onhold":
		return StatusOnHold, nil
	case "notstarted":
		return StatusNotStarted, nil
	}
	st := TaskStatus(norm)
	if !st.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return st, nil
}

// MilestoneType scopes a milestone to a cell, a phase, or nothing.
type MilestoneType string

const (
	MilestoneWorkstreamGate MilestoneType = "workstream_gate"
	MilestoneProgramGate    MilestoneType = "program_gate"
	MilestoneGeneral        MilestoneType = "general"
)

// ParseMilestoneType normalizes a stored milestone type. Empty means general.
func ParseMilestoneType(s string) (MilestoneType, error) {
	switch mt := MilestoneType(strings.ToLower(strings.TrimSpace(s))); mt {
	case "":
		return MilestoneGeneral, nil
	case MilestoneWorkstreamGate, MilestoneProgramGate, MilestoneGeneral:
		return mt, nil
	}
	return "", fmt.Errorf("unknown milestone type %q", s)
}

// DependencyType is one of the four precedence relations.
type DependencyType string

const (
	FinishToStart  DependencyType = "FS"
	FinishToFinish DependencyType = "FF"
	StartToStart   DependencyType = "SS"
	StartToFinish  DependencyType = "SF"
)

// Valid reports whether d is one of FS, FF, SS, SF.
func (d DependencyType) Valid() bool {
	switch d {
	case FinishToStart, FinishToFinish, StartToStart, StartToFinish:
		return true
	}
	return false
}

// ParseDependencyType accepts the two-letter code in any case, or the long
// form ("finish_to_start"). Empty means FS.
func ParseDependencyType(s string) (DependencyType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	switch norm {
	case "":
		return FinishToStart, nil
	case "FINISH_TO_START":
		return FinishToStart, nil
	case "FINISH_TO_FINISH":
		return FinishToFinish, nil
	case "START_TO_START":
		return StartToStart, nil
	case "START_TO_FINISH":
		return StartToFinish, nil
	}
	d := DependencyType(norm)
	if !d.Valid() {
		return "", fmt.Errorf("unknown dependency type %q", s)
	}
	return d, nil
}
