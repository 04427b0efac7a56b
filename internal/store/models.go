package store

import "time"

// StrategyRow is the owning strategy. Only its identity matters here.
type StrategyRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (StrategyRow) TableName() string { return "strategies" }

// WorkstreamRow groups tasks within a strategy.
type WorkstreamRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	StrategyID string `gorm:"size:64;not null;index:idx_workstream_strategy"`
	Name       string `gorm:"size:255"`
	Lead       string `gorm:"size:255"`
	SortOrder  int    `gorm:"default:0"`
}

func (WorkstreamRow) TableName() string { return "workstreams" }

// PhaseRow is a sequence-ordered column of the workstream matrix.
type PhaseRow struct {
	ID           string `gorm:"primaryKey;size:64"`
	StrategyID   string `gorm:"size:64;not null;index:idx_phase_strategy"`
	Name         string `gorm:"size:255"`
	Sequence     int    `gorm:"default:0"`
	PlannedStart *time.Time
	PlannedEnd   *time.Time
}

func (PhaseRow) TableName() string { return "phases" }

// TaskRow is a workstream task. The Early*/Late*/TotalFloat/IsCritical columns
// are a cache written back by the engine; they are never read as input.
type TaskRow struct {
	ID              string `gorm:"primaryKey;size:64"`
	WorkstreamID    string `gorm:"size:64;not null;index:idx_task_cell,priority:1"`
	PhaseID         string `gorm:"size:64;not null;index:idx_task_cell,priority:2"`
	Name            string `gorm:"size:255"`
	PlannedStart    *time.Time
	PlannedEnd      *time.Time
	ActualStart     *time.Time
	ActualEnd       *time.Time
	DurationDays    int    `gorm:"default:0"`
	PercentComplete int    `gorm:"default:0"`
	Status          string `gorm:"size:32;default:not_started"`
	IsMilestone     bool   `gorm:"default:false"`
	MilestoneType   string `gorm:"size:32"`

	EarlyStart  *int
	EarlyFinish *int
	LateStart   *int
	LateFinish  *int
	TotalFloat  *int
	IsCritical  *bool
	ScheduledAt *time.Time
}

func (TaskRow) TableName() string { return "workstream_tasks" }

// DependencyRow is a typed precedence edge. One row per ordered pair.
type DependencyRow struct {
	ID                uint   `gorm:"primaryKey"`
	PredecessorTaskID string `gorm:"size:64;not null;uniqueIndex:idx_dependency_pair,priority:1;index:idx_dependency_pred"`
	SuccessorTaskID   string `gorm:"size:64;not null;uniqueIndex:idx_dependency_pair,priority:2;index:idx_dependency_succ"`
	Type              string `gorm:"size:8;default:FS"`
	LagDays           int    `gorm:"default:0"`
}

func (DependencyRow) TableName() string { return "workstream_task_dependencies" }

// GateCriterionRow is a readiness check on a gate milestone.
type GateCriterionRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	TaskID      string `gorm:"size:64;not null;index:idx_criterion_task"`
	Description string `gorm:"type:text"`
	IsMet       bool   `gorm:"default:false"`
	Evidence    string `gorm:"type:text"`
	Owner       string `gorm:"size:255"`
}

func (GateCriterionRow) TableName() string { return "gate_criteria" }

func allModels() []any {
	return []any{
		&StrategyRow{},
		&WorkstreamRow{},
		&PhaseRow{},
		&TaskRow{},
		&DependencyRow{},
		&GateCriterionRow{},
	}
}
