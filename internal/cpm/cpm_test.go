package cpm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/graph"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
)

func task(id string, dur int) model.Task {
	return model.Task{ID: id, WorkstreamID: "ws", PhaseID: "ph", DurationDays: dur}
}

func milestone(id string) model.Task {
	t := task(id, 0)
	t.IsMilestone = true
	t.MilestoneType = model.MilestoneWorkstreamGate
	return t
}

func dep(pred, succ string, typ model.DependencyType, lag int) model.Dependency {
	return model.Dependency{PredecessorID: pred, SuccessorID: succ, Type: typ, LagDays: lag}
}

func buildTestGraph(t *testing.T, tasks []model.Task, deps []model.Dependency) *graph.TaskGraph {
	t.Helper()
	snap := &model.Snapshot{StrategyID: "s1", Tasks: tasks, Dependencies: deps}
	g, err := graph.Build(snap, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func analyze(t *testing.T, tasks []model.Task, deps []model.Dependency) *CPMResult {
	t.Helper()
	result, err := Analyze(buildTestGraph(t, tasks, deps))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestAnalyze_WorkedScenario(t *testing.T) {
	// T1 -FS-> T2 -FF-> T4
	// T1 -FS+2-> T3 -SS-> T4
	result := analyze(t,
		[]model.Task{task("T1", 5), task("T2", 3), task("T3", 4), milestone("T4")},
		[]model.Dependency{
			dep("T1", "T2", model.FinishToStart, 0),
			dep("T1", "T3", model.FinishToStart, 2),
			dep("T2", "T4", model.FinishToFinish, 0),
			dep("T3", "T4", model.StartToStart, 0),
		},
	)

	if result.ProjectFinish != 11 {
		t.Errorf("expected project finish 11, got %d", result.ProjectFinish)
	}

	assertSchedule(t, result.Tasks["T1"], 0, 5, 0, 5, 0, true)
	assertSchedule(t, result.Tasks["T2"], 5, 8, 8, 11, 3, false)
	assertSchedule(t, result.Tasks["T3"], 7, 11, 7, 11, 0, true)
	assertSchedule(t, result.Tasks["T4"], 8, 8, 11, 11, 3, false)

	if diff := cmp.Diff([]string{"T1", "T3"}, result.CriticalPath); diff != "" {
		t.Errorf("critical path mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_LinearChain(t *testing.T) {
	// A -> B -> C (each duration 1)
	result := analyze(t,
		[]model.Task{task("a", 1), task("b", 1), task("c", 1)},
		[]model.Dependency{dep("a", "b", model.FinishToStart, 0), dep("b", "c", model.FinishToStart, 0)},
	)

	if result.ProjectFinish != 3 {
		t.Errorf("expected project finish 3, got %d", result.ProjectFinish)
	}
	if len(result.CriticalPath) != 3 {
		t.Errorf("expected 3 tasks on critical path, got %d: %v", len(result.CriticalPath), result.CriticalPath)
	}
	if len(result.Waves) != 3 {
		t.Errorf("expected 3 waves, got %d", len(result.Waves))
	}

	assertSchedule(t, result.Tasks["a"], 0, 1, 0, 1, 0, true)
	assertSchedule(t, result.Tasks["b"], 1, 2, 1, 2, 0, true)
	assertSchedule(t, result.Tasks["c"], 2, 3, 2, 3, 0, true)
}

func TestAnalyze_WithDurations(t *testing.T) {
	// A(5) -> B(1) -> D(1)
	// A(5) -> C(10) -> D(1)
	// Critical path should be A -> C -> D (total 16)
	result := analyze(t,
		[]model.Task{task("a", 5), task("b", 1), task("c", 10), task("d", 1)},
		[]model.Dependency{
			dep("a", "b", model.FinishToStart, 0),
			dep("a", "c", model.FinishToStart, 0),
			dep("b", "d", model.FinishToStart, 0),
			dep("c", "d", model.FinishToStart, 0),
		},
	)

	if result.ProjectFinish != 16 {
		t.Errorf("expected project finish 16, got %d", result.ProjectFinish)
	}
	if result.Tasks["b"].IsCritical {
		t.Error("expected task B to NOT be critical")
	}
	if result.Tasks["b"].TotalFloat != 9 {
		t.Errorf("expected B float=9, got %d", result.Tasks["b"].TotalFloat)
	}
	for _, id := range []string{"a", "c", "d"} {
		if !result.Tasks[id].IsCritical {
			t.Errorf("expected task %s to be critical", id)
		}
	}
}

func TestAnalyze_ParallelIndependent(t *testing.T) {
	result := analyze(t, []model.Task{task("a", 2), task("b", 2), task("c", 1)}, nil)

	if len(result.Waves) != 1 {
		t.Errorf("expected 1 wave, got %d", len(result.Waves))
	}
	if result.ProjectFinish != 2 {
		t.Errorf("expected project finish 2, got %d", result.ProjectFinish)
	}
	// c is both root and leaf; its float is measured against the project finish
	assertSchedule(t, result.Tasks["c"], 0, 1, 1, 2, 1, false)

	// Critical tasks come first within a wave
	if got := result.Waves[0].TaskIDs; got[2] != "c" {
		t.Errorf("expected non-critical c last in wave, got %v", got)
	}
}

func TestAnalyze_DependencyTypes(t *testing.T) {
	tests := []struct {
		name       string
		dep        model.Dependency
		succDur    int
		wantES     int
		wantEF     int
		wantFinish int
	}{
		// predecessor p: ES 0, EF 4
		{"FS", dep("p", "s", model.FinishToStart, 0), 3, 4, 7, 7},
		{"FS with lag", dep("p", "s", model.FinishToStart, 2), 3, 6, 9, 9},
		{"FS with lead", dep("p", "s", model.FinishToStart, -2), 3, 2, 5, 5},
		{"SS", dep("p", "s", model.StartToStart, 1), 3, 1, 4, 4},
		{"FF", dep("p", "s", model.FinishToFinish, 0), 2, 2, 4, 4},
		{"FF longer successor", dep("p", "s", model.FinishToFinish, 0), 6, 0, 6, 6},
		{"SF", dep("p", "s", model.StartToFinish, 5), 2, 3, 5, 5},
		{"lead clamped at project start", dep("p", "s", model.StartToStart, -3), 1, 0, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analyze(t, []model.Task{task("p", 4), task("s", tt.succDur)}, []model.Dependency{tt.dep})
			s := result.Tasks["s"]
			if s.ES != tt.wantES || s.EF != tt.wantEF {
				t.Errorf("expected ES/EF %d/%d, got %d/%d", tt.wantES, tt.wantEF, s.ES, s.EF)
			}
			if result.ProjectFinish != tt.wantFinish {
				t.Errorf("expected project finish %d, got %d", tt.wantFinish, result.ProjectFinish)
			}
			assertFloatConsistent(t, result)
		})
	}
}

func TestAnalyze_MilestoneFinishAndStartFloors(t *testing.T) {
	// m has a start floor of 7 (SS from b, ES 7) and a finish floor of 9 (FF from a)
	result := analyze(t,
		[]model.Task{task("a", 9), task("pre", 7), task("b", 2), milestone("m")},
		[]model.Dependency{
			dep("pre", "b", model.FinishToStart, 0),
			dep("a", "m", model.FinishToFinish, 0),
			dep("b", "m", model.StartToStart, 0),
		},
	)

	m := result.Tasks["m"]
	if m.ES != 9 || m.EF != 9 {
		t.Errorf("expected milestone at max(floors)=9, got ES=%d EF=%d", m.ES, m.EF)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	result := analyze(t, nil, nil)
	if result.ProjectFinish != 0 || len(result.Tasks) != 0 || len(result.Waves) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestAnalyze_CycleRejected(t *testing.T) {
	g := buildTestGraph(t, []model.Task{task("a", 1), task("b", 1)}, []model.Dependency{dep("a", "b", model.FinishToStart, 0)})
	// Add a back edge after Build to simulate a graph that skipped validation
	g.Edges = append(g.Edges, graph.Edge{From: 1, To: 0, Type: model.FinishToStart})
	g.Nodes[1].Out = append(g.Nodes[1].Out, 1)
	g.Nodes[0].In = append(g.Nodes[0].In, 1)

	result, err := Analyze(g)
	if !errors.Is(err, graph.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	if result != nil {
		t.Error("expected no partial result on cycle")
	}
}

func TestAnalyze_RandomGraphProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []model.DependencyType{model.FinishToStart, model.StartToStart, model.FinishToFinish, model.StartToFinish}

	for round := 0; round < 200; round++ {
		tasks, deps := randomNetwork(rng, types)
		result := analyze(t, tasks, deps)
		assertFloatConsistent(t, result)
		assertCriticalChain(t, tasks, deps, result)

		// Shuffled input must give an identical schedule
		rng.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })
		rng.Shuffle(len(deps), func(i, j int) { deps[i], deps[j] = deps[j], deps[i] })
		again := analyze(t, tasks, deps)
		if diff := cmp.Diff(result, again); diff != "" {
			t.Fatalf("round %d: result depends on input order (-first +second):\n%s", round, diff)
		}
	}
}

func randomNetwork(rng *rand.Rand, types []model.DependencyType) ([]model.Task, []model.Dependency) {
	n := 2 + rng.Intn(12)
	tasks := make([]model.Task, n)
	for i := range tasks {
		tasks[i] = task(fmt.Sprintf("t%02d", i), rng.Intn(7))
	}
	var deps []model.Dependency
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Intn(3) == 0 {
				deps = append(deps, dep(tasks[i].ID, tasks[j].ID, types[rng.Intn(len(types))], rng.Intn(6)-2))
			}
		}
	}
	return tasks, deps
}

func assertFloatConsistent(t *testing.T, result *CPMResult) {
	t.Helper()
	for id, ts := range result.Tasks {
		if ts.LS-ts.ES != ts.LF-ts.EF {
			t.Errorf("task %s: LS-ES=%d but LF-EF=%d", id, ts.LS-ts.ES, ts.LF-ts.EF)
		}
		if ts.TotalFloat < 0 {
			t.Errorf("task %s: negative float %d", id, ts.TotalFloat)
		}
		if ts.EF > result.ProjectFinish || ts.LF > result.ProjectFinish {
			t.Errorf("task %s finishes after the project (%d/%d > %d)", id, ts.EF, ts.LF, result.ProjectFinish)
		}
	}
}

// assertCriticalChain walks back from a task finishing on the project finish
// through driving critical predecessors and checks the chain reaches day 0.
func assertCriticalChain(t *testing.T, tasks []model.Task, deps []model.Dependency, result *CPMResult) {
	t.Helper()
	if len(tasks) == 0 {
		return
	}

	var cur *TaskSchedule
	for _, id := range result.TopoOrder {
		ts := result.Tasks[id]
		if ts.EF == result.ProjectFinish {
			cur = ts
			break
		}
	}
	if cur == nil || !cur.IsCritical {
		t.Fatalf("no critical task finishes on day %d", result.ProjectFinish)
	}

	for steps := 0; cur.ES > 0; steps++ {
		if steps > len(tasks) {
			t.Fatal("critical chain did not terminate")
		}
		var next *TaskSchedule
		for _, d := range deps {
			if d.SuccessorID != cur.TaskID {
				continue
			}
			p := result.Tasks[d.PredecessorID]
			var floor int
			switch d.Type {
			case model.FinishToStart:
				floor = p.EF + d.LagDays
			case model.StartToStart:
				floor = p.ES + d.LagDays
			case model.FinishToFinish:
				floor = p.EF + d.LagDays - cur.Duration
			case model.StartToFinish:
				floor = p.ES + d.LagDays - cur.Duration
			}
			if floor == cur.ES {
				next = p
				break
			}
		}
		if next == nil {
			t.Fatalf("task %s starts on day %d with no driving predecessor", cur.TaskID, cur.ES)
		}
		if !next.IsCritical {
			t.Fatalf("driving predecessor %s of critical %s is not critical", next.TaskID, cur.TaskID)
		}
		cur = next
	}
}

func assertSchedule(t *testing.T, ts *TaskSchedule, es, ef, ls, lf, float int, critical bool) {
	t.Helper()
	if ts == nil {
		t.Fatal("missing task schedule")
	}
	if ts.ES != es {
		t.Errorf("task %s: expected ES=%d, got %d", ts.TaskID, es, ts.ES)
	}
	if ts.EF != ef {
		t.Errorf("task %s: expected EF=%d, got %d", ts.TaskID, ef, ts.EF)
	}
	if ts.LS != ls {
		t.Errorf("task %s: expected LS=%d, got %d", ts.TaskID, ls, ts.LS)
	}
	if ts.LF != lf {
		t.Errorf("task %s: expected LF=%d, got %d", ts.TaskID, lf, ts.LF)
	}
	if ts.TotalFloat != float {
		t.Errorf("task %s: expected float=%d, got %d", ts.TaskID, float, ts.TotalFloat)
	}
	if ts.IsCritical != critical {
		t.Errorf("task %s: expected critical=%v, got %v", ts.TaskID, critical, ts.IsCritical)
	}
}
