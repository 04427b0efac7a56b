// Package store reads strategy snapshots from, and writes cached schedules
// back to, the relational strategy store.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
)

// ErrStrategyNotFound is returned when no strategy row has the requested ID.
var ErrStrategyNotFound = errors.New("strategy not found")

// Store wraps a gorm handle on the strategy database.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path. Use ":memory:"
// for a throwaway database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if path == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db, logger), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// LoadSnapshot reads everything the engine needs for one strategy inside a
// single read transaction, so the result reflects one consistent state.
//
// Dependencies touching the strategy's tasks are loaded even when the other
// endpoint lies elsewhere; the graph builder reports those as anomalies.
func (s *Store) LoadSnapshot(ctx context.Context, strategyID string) (*model.Snapshot, error) {
	snap := &model.Snapshot{StrategyID: strategyID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var strategy StrategyRow
		if err := tx.Where("id = ?", strategyID).First(&strategy).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrStrategyNotFound, strategyID)
			}
			return fmt.Errorf("load strategy: %w", err)
		}

		var workstreams []WorkstreamRow
		if err := tx.Where("strategy_id = ?", strategyID).Order("sort_order, id").Find(&workstreams).Error; err != nil {
			return fmt.Errorf("load workstreams: %w", err)
		}
		var phases []PhaseRow
		if err := tx.Where("strategy_id = ?", strategyID).Order("sequence, id").Find(&phases).Error; err != nil {
			return fmt.Errorf("load phases: %w", err)
		}

		wsIDs := make([]string, len(workstreams))
		for i, w := range workstreams {
			wsIDs[i] = w.ID
			snap.Workstreams = append(snap.Workstreams, model.Workstream{
				ID: w.ID, StrategyID: w.StrategyID, Name: w.Name, Lead: w.Lead, SortOrder: w.SortOrder,
			})
		}
		phaseIDs := make([]string, len(phases))
		for i, p := range phases {
			phaseIDs[i] = p.ID
			snap.Phases = append(snap.Phases, model.Phase{
				ID: p.ID, StrategyID: p.StrategyID, Name: p.Name, Sequence: p.Sequence,
				PlannedStart: p.PlannedStart, PlannedEnd: p.PlannedEnd,
			})
		}
		if len(wsIDs) == 0 || len(phaseIDs) == 0 {
			return nil
		}

		var tasks []TaskRow
		if err := tx.Where("workstream_id IN ? AND phase_id IN ?", wsIDs, phaseIDs).Order("id").Find(&tasks).Error; err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		if len(tasks) == 0 {
			return nil
		}
		taskIDs := make([]string, len(tasks))
		for i := range tasks {
			taskIDs[i] = tasks[i].ID
			snap.Tasks = append(snap.Tasks, s.toTask(&tasks[i]))
		}

		var deps []DependencyRow
		if err := tx.Where("predecessor_task_id IN ? OR successor_task_id IN ?", taskIDs, taskIDs).
			Order("id").Find(&deps).Error; err != nil {
			return fmt.Errorf("load dependencies: %w", err)
		}
		for _, d := range deps {
			snap.Dependencies = append(snap.Dependencies, toDependency(d))
		}

		var criteria []GateCriterionRow
		if err := tx.Where("task_id IN ?", taskIDs).Order("task_id, id").Find(&criteria).Error; err != nil {
			return fmt.Errorf("load gate criteria: %w", err)
		}
		for _, c := range criteria {
			snap.Criteria = append(snap.Criteria, model.GateCriterion{
				ID: c.ID, TaskID: c.TaskID, Description: c.Description,
				IsMet: c.IsMet, Evidence: c.Evidence, Owner: c.Owner,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("snapshot loaded",
		"strategy", strategyID,
		"workstreams", len(snap.Workstreams),
		"phases", len(snap.Phases),
		"tasks", len(snap.Tasks),
		"dependencies", len(snap.Dependencies),
	)
	return snap, nil
}

// SaveSchedules writes the cached schedule columns for a strategy's tasks in
// one transaction. Either every row is updated or none is.
func (s *Store) SaveSchedules(ctx context.Context, strategyID string, schedules []model.Schedule, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned []string
		if err := tx.Model(&WorkstreamRow{}).Where("strategy_id = ?", strategyID).Pluck("id", &owned).Error; err != nil {
			return fmt.Errorf("load workstreams: %w", err)
		}
		if len(owned) == 0 && len(schedules) > 0 {
			return fmt.Errorf("%w: %s", ErrStrategyNotFound, strategyID)
		}
		for _, sc := range schedules {
			res := tx.Model(&TaskRow{}).
				Where("id = ? AND workstream_id IN ?", sc.TaskID, owned).
				Updates(map[string]any{
					"early_start":  sc.EarlyStart,
					"early_finish": sc.EarlyFinish,
					"late_start":   sc.LateStart,
					"late_finish":  sc.LateFinish,
					"total_float":  sc.TotalFloat,
					"is_critical":  sc.IsCritical,
					"scheduled_at": at,
				})
			if res.Error != nil {
				return fmt.Errorf("save schedule for %s: %w", sc.TaskID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("save schedule for %s: task not in strategy %s", sc.TaskID, strategyID)
			}
		}
		return nil
	})
}

// Import upserts a snapshot, creating the strategy row if needed.
func (s *Store) Import(ctx context.Context, snap *model.Snapshot, name string) error {
	if snap.StrategyID == "" {
		return errors.New("import: snapshot has no strategy id")
	}
	upsert := clause.OnConflict{UpdateAll: true}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		strategy := StrategyRow{ID: snap.StrategyID, Name: name}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&strategy).Error; err != nil {
			return fmt.Errorf("import strategy: %w", err)
		}

		if rows := fromWorkstreams(snap); len(rows) > 0 {
			if err := tx.Clauses(upsert).Create(&rows).Error; err != nil {
				return fmt.Errorf("import workstreams: %w", err)
			}
		}
		if rows := fromPhases(snap); len(rows) > 0 {
			if err := tx.Clauses(upsert).Create(&rows).Error; err != nil {
				return fmt.Errorf("import phases: %w", err)
			}
		}
		if rows := fromTasks(snap); len(rows) > 0 {
			if err := tx.Clauses(upsert).Create(&rows).Error; err != nil {
				return fmt.Errorf("import tasks: %w", err)
			}
		}
		if rows := fromDependencies(snap); len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "predecessor_task_id"}, {Name: "successor_task_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"type", "lag_days"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("import dependencies: %w", err)
			}
		}
		if rows := fromCriteria(snap); len(rows) > 0 {
			if err := tx.Clauses(upsert).Create(&rows).Error; err != nil {
				return fmt.Errorf("import gate criteria: %w", err)
			}
		}

		s.logger.Info("snapshot imported",
			"strategy", snap.StrategyID,
			"tasks", len(snap.Tasks),
			"dependencies", len(snap.Dependencies),
		)
		return nil
	})
}

// Strategies lists every strategy ID, ordered.
func (s *Store) Strategies(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&StrategyRow{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	return ids, nil
}

func (s *Store) toTask(r *TaskRow) model.Task {
	status, err := model.ParseTaskStatus(r.Status)
	if err != nil {
		s.logger.Warn("unknown task status, treating as not_started", "task", r.ID, "status", r.Status)
		status = model.StatusNotStarted
	}
	mt := model.MilestoneType("")
	if r.IsMilestone {
		mt, err = model.ParseMilestoneType(r.MilestoneType)
		if err != nil {
			s.logger.Warn("unknown milestone type, treating as general", "task", r.ID, "milestone_type", r.MilestoneType)
			mt = model.MilestoneGeneral
		}
	}
	return model.Task{
		ID:              r.ID,
		WorkstreamID:    r.WorkstreamID,
		PhaseID:         r.PhaseID,
		Name:            r.Name,
		PlannedStart:    r.PlannedStart,
		PlannedEnd:      r.PlannedEnd,
		ActualStart:     r.ActualStart,
		ActualEnd:       r.ActualEnd,
		DurationDays:    r.DurationDays,
		PercentComplete: r.PercentComplete,
		Status:          status,
		IsMilestone:     r.IsMilestone,
		MilestoneType:   mt,
	}
}

// toDependency keeps an unrecognized type verbatim so the graph builder can
// report it.
func toDependency(r DependencyRow) model.Dependency {
	typ, err := model.ParseDependencyType(r.Type)
	if err != nil {
		typ = model.DependencyType(r.Type)
	}
	return model.Dependency{
		PredecessorID: r.PredecessorTaskID,
		SuccessorID:   r.SuccessorTaskID,
		Type:          typ,
		LagDays:       r.LagDays,
	}
}

func fromWorkstreams(snap *model.Snapshot) []WorkstreamRow {
	rows := make([]WorkstreamRow, 0, len(snap.Workstreams))
	for _, w := range snap.Workstreams {
		rows = append(rows, WorkstreamRow{
			ID: w.ID, StrategyID: snap.StrategyID, Name: w.Name, Lead: w.Lead, SortOrder: w.SortOrder,
		})
	}
	return rows
}

func fromPhases(snap *model.Snapshot) []PhaseRow {
	rows := make([]PhaseRow, 0, len(snap.Phases))
	for _, p := range snap.Phases {
		rows = append(rows, PhaseRow{
			ID: p.ID, StrategyID: snap.StrategyID, Name: p.Name, Sequence: p.Sequence,
			PlannedStart: p.PlannedStart, PlannedEnd: p.PlannedEnd,
		})
	}
	return rows
}

func fromTasks(snap *model.Snapshot) []TaskRow {
	rows := make([]TaskRow, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		status := t.Status
		if status == "" {
			status = model.StatusNotStarted
		}
		rows = append(rows, TaskRow{
			ID:              t.ID,
			WorkstreamID:    t.WorkstreamID,
			PhaseID:         t.PhaseID,
			Name:            t.Name,
			PlannedStart:    t.PlannedStart,
			PlannedEnd:      t.PlannedEnd,
			ActualStart:     t.ActualStart,
			ActualEnd:       t.ActualEnd,
			DurationDays:    t.DurationDays,
			PercentComplete: t.PercentComplete,
			Status:          string(status),
			IsMilestone:     t.IsMilestone,
			MilestoneType:   string(t.MilestoneType),
		})
	}
	return rows
}

func fromDependencies(snap *model.Snapshot) []DependencyRow {
	rows := make([]DependencyRow, 0, len(snap.Dependencies))
	seen := make(map[[2]string]bool, len(snap.Dependencies))
	for _, d := range snap.Dependencies {
		key := [2]string{d.PredecessorID, d.SuccessorID}
		if seen[key] {
			continue
		}
		seen[key] = true
		typ := d.Type
		if typ == "" {
			typ = model.FinishToStart
		}
		rows = append(rows, DependencyRow{
			PredecessorTaskID: d.PredecessorID,
			SuccessorTaskID:   d.SuccessorID,
			Type:              string(typ),
			LagDays:           d.LagDays,
		})
	}
	return rows
}

func fromCriteria(snap *model.Snapshot) []GateCriterionRow {
	rows := make([]GateCriterionRow, 0, len(snap.Criteria))
	for _, c := range snap.Criteria {
		rows = append(rows, GateCriterionRow{
			ID: c.ID, TaskID: c.TaskID, Description: c.Description,
			IsMet: c.IsMet, Evidence: c.Evidence, Owner: c.Owner,
		})
	}
	return rows
}
