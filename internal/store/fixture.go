package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
)

// DecodeFixture reads a strategy export into a snapshot. It accepts camelCase
// and snake_case keys, booleans stored as strings, and numbers stored as
// strings, since exports from the strategy tool have carried all of them.
// Unknown enum values are kept verbatim for the graph builder to report.
func DecodeFixture(data []byte) (*model.Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("fixture is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("fixture must be a JSON object")
	}

	snap := &model.Snapshot{
		StrategyID: field(root, "strategyId", "strategy_id", "strategy.id").String(),
	}
	if snap.StrategyID == "" {
		return nil, errors.New("fixture has no strategyId")
	}

	var errs []error

	field(root, "workstreams").ForEach(func(_, w gjson.Result) bool {
		snap.Workstreams = append(snap.Workstreams, model.Workstream{
			ID:         w.Get("id").String(),
			StrategyID: snap.StrategyID,
			Name:       w.Get("name").String(),
			Lead:       w.Get("lead").String(),
			SortOrder:  int(field(w, "sortOrder", "sort_order").Int()),
		})
		return true
	})

	field(root, "phases").ForEach(func(_, p gjson.Result) bool {
		ph := model.Phase{
			ID:         p.Get("id").String(),
			StrategyID: snap.StrategyID,
			Name:       p.Get("name").String(),
			Sequence:   int(field(p, "sequence", "sequenceNumber", "sequence_number").Int()),
		}
		var err error
		if ph.PlannedStart, err = dateField(p, "plannedStart", "planned_start"); err != nil {
			errs = append(errs, fmt.Errorf("phase %s: %w", ph.ID, err))
		}
		if ph.PlannedEnd, err = dateField(p, "plannedEnd", "planned_end"); err != nil {
			errs = append(errs, fmt.Errorf("phase %s: %w", ph.ID, err))
		}
		snap.Phases = append(snap.Phases, ph)
		return true
	})

	field(root, "tasks").ForEach(func(_, t gjson.Result) bool {
		task, err := decodeTask(t)
		if err != nil {
			errs = append(errs, err)
		}
		snap.Tasks = append(snap.Tasks, task)
		return true
	})

	field(root, "dependencies").ForEach(func(_, d gjson.Result) bool {
		raw := d.Get("type").String()
		typ, err := model.ParseDependencyType(raw)
		if err != nil {
			typ = model.DependencyType(raw)
		}
		snap.Dependencies = append(snap.Dependencies, model.Dependency{
			PredecessorID: field(d, "predecessorTaskId", "predecessor_task_id", "predecessorId", "predecessor").String(),
			SuccessorID:   field(d, "successorTaskId", "successor_task_id", "successorId", "successor").String(),
			Type:          typ,
			LagDays:       int(field(d, "lagDays", "lag_days", "lag").Int()),
		})
		return true
	})

	field(root, "gateCriteria", "gate_criteria", "criteria").ForEach(func(_, c gjson.Result) bool {
		snap.Criteria = append(snap.Criteria, model.GateCriterion{
			ID:          c.Get("id").String(),
			TaskID:      field(c, "taskId", "task_id", "milestoneTaskId", "milestone_task_id").String(),
			Description: c.Get("description").String(),
			IsMet:       field(c, "isMet", "is_met").Bool(),
			Evidence:    c.Get("evidence").String(),
			Owner:       c.Get("owner").String(),
		})
		return true
	})

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snap, nil
}

func decodeTask(t gjson.Result) (model.Task, error) {
	task := model.Task{
		ID:              t.Get("id").String(),
		WorkstreamID:    field(t, "workstreamId", "workstream_id").String(),
		PhaseID:         field(t, "phaseId", "phase_id").String(),
		Name:            field(t, "name", "title").String(),
		DurationDays:    int(field(t, "durationDays", "duration_days", "duration").Int()),
		PercentComplete: int(field(t, "percentComplete", "percent_complete", "progress").Int()),
		IsMilestone:     field(t, "isMilestone", "is_milestone").Bool(),
	}

	status, err := model.ParseTaskStatus(t.Get("status").String())
	if err != nil {
		return task, fmt.Errorf("task %s: %w", task.ID, err)
	}
	task.Status = status

	if task.IsMilestone {
		mt, err := model.ParseMilestoneType(field(t, "milestoneType", "milestone_type").String())
		if err != nil {
			return task, fmt.Errorf("task %s: %w", task.ID, err)
		}
		task.MilestoneType = mt
	}

	dates := []struct {
		dst  **time.Time
		keys []string
	}{
		{&task.PlannedStart, []string{"plannedStart", "planned_start"}},
		{&task.PlannedEnd, []string{"plannedEnd", "planned_end"}},
		{&task.ActualStart, []string{"actualStart", "actual_start"}},
		{&task.ActualEnd, []string{"actualEnd", "actual_end"}},
	}
	for _, d := range dates {
		v, err := dateField(t, d.keys...)
		if err != nil {
			return task, fmt.Errorf("task %s: %w", task.ID, err)
		}
		*d.dst = v
	}
	return task, nil
}

// field returns the first of keys present on r.
func field(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// dateField reads an optional date. Null, missing and empty are all unset.
func dateField(r gjson.Result, keys ...string) (*time.Time, error) {
	v := field(r, keys...)
	s := strings.TrimSpace(v.String())
	if v.Type == gjson.Null || s == "" {
		return nil, nil
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid date %q", keys[0], s)
	}
	return &t, nil
}
