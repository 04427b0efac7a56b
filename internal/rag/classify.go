package rag

import (
	"time"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/cpm"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
)

// Reason names the rule that decided a task's signal.
type Reason string

const (
	ReasonBlocked         Reason = "blocked"
	ReasonCompletedOnTime Reason = "completed_on_time"
	ReasonCompletedLate   Reason = "completed_late"
	ReasonOverdue         Reason = "overdue"
	ReasonLowFloat        Reason = "low_float"
	ReasonGateCriteria    Reason = "gate_criteria_unmet"
	ReasonOnTrack         Reason = "on_track"
)

// Verdict is the signal for one task and the rule that produced it.
type Verdict struct {
	RAG    RAG
	Reason Reason
}

// Classifier evaluates task signals against a fixed reference date. It never
// reads the clock; AsOf is supplied by the caller.
type Classifier struct {
	Policy Policy
	AsOf   time.Time
	// Anchor is the calendar date of schedule day 0.
	Anchor time.Time
}

// Classify applies the rules in order; the first match wins:
// blocked, completed (on time or late), overdue, low float, on track.
func (c *Classifier) Classify(t *model.Task, s *cpm.TaskSchedule, criteria []model.GateCriterion) Verdict {
	if t.Status == model.StatusBlocked {
		return Verdict{Red, ReasonBlocked}
	}

	if t.Completed() {
		if t.PlannedEnd != nil && model.DateOf(*t.ActualEnd).After(model.DateOf(*t.PlannedEnd)) {
			return Verdict{Amber, ReasonCompletedLate}
		}
		return Verdict{Green, ReasonCompletedOnTime}
	}

	asOf := model.DateOf(c.AsOf)
	due, hasDue := c.DueDate(t, s)
	if hasDue && asOf.After(due) {
		return Verdict{Red, ReasonOverdue}
	}

	if s != nil && s.TotalFloat <= c.Policy.AmberThresholdDays {
		return Verdict{Amber, ReasonLowFloat}
	}

	if c.Policy.GateCriteriaEscalation && t.IsGate() && hasDue && hasUnmet(criteria) &&
		model.DaysBetween(asOf, due) <= c.Policy.GateLookaheadDays {
		return Verdict{Amber, ReasonGateCriteria}
	}

	return Verdict{Green, ReasonOnTrack}
}

// DueDate is the planned end, or for a milestone without one, the calendar
// date of its early finish.
func (c *Classifier) DueDate(t *model.Task, s *cpm.TaskSchedule) (time.Time, bool) {
	if t.PlannedEnd != nil {
		return model.DateOf(*t.PlannedEnd), true
	}
	if t.IsMilestone && s != nil && !c.Anchor.IsZero() {
		return model.AddDays(c.Anchor, s.EF), true
	}
	return time.Time{}, false
}

func hasUnmet(criteria []model.GateCriterion) bool {
	for _, gc := range criteria {
		if !gc.IsMet {
			return true
		}
	}
	return false
}
