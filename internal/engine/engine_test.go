package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/graph"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/logging"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/rag"
)

func day(s string) *time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// workedSnapshot is the four-task example:
//
//	T1 (5d) -FS-> T2 (3d) -FF-> T4 (gate)
//	T1 -FS+2-> T3 (4d) -SS-> T4
func workedSnapshot() *model.Snapshot {
	return &model.Snapshot{
		StrategyID: "s1",
		Tasks: []model.Task{
			{ID: "T1", WorkstreamID: "ws1", PhaseID: "p1", DurationDays: 5, PlannedStart: day("2026-01-05"),
				PlannedEnd: day("2026-01-10"), ActualEnd: day("2026-01-10"), Status: model.StatusCompleted},
			{ID: "T2", WorkstreamID: "ws1", PhaseID: "p1", DurationDays: 3, Status: model.StatusInProgress},
			{ID: "T3", WorkstreamID: "ws2", PhaseID: "p1", DurationDays: 4, Status: model.StatusNotStarted},
			{ID: "T4", WorkstreamID: "ws2", PhaseID: "p1", IsMilestone: true, MilestoneType: model.MilestoneWorkstreamGate},
		},
		Dependencies: []model.Dependency{
			{PredecessorID: "T1", SuccessorID: "T2", Type: model.FinishToStart},
			{PredecessorID: "T1", SuccessorID: "T3", Type: model.FinishToStart, LagDays: 2},
			{PredecessorID: "T2", SuccessorID: "T4", Type: model.FinishToFinish},
			{PredecessorID: "T3", SuccessorID: "T4", Type: model.StartToStart},
		},
		Criteria: []model.GateCriterion{
			{ID: "c1", TaskID: "T4", Description: "sign-off", IsMet: false},
			{ID: "c2", TaskID: "T4", Description: "budget", IsMet: true},
		},
	}
}

func testPolicy() rag.Policy {
	return rag.Policy{AmberThresholdDays: 2, GateLookaheadDays: 7, GateCriteriaEscalation: true}
}

func TestCalculate_WorkedScenario(t *testing.T) {
	res, err := Calculate(workedSnapshot(), *day("2026-01-06"), testPolicy(), logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, "2026-01-05", res.ProjectStart)
	assert.Equal(t, "2026-01-06", res.AsOf)
	assert.Equal(t, 11, res.ProjectFinishDays)

	wantFloat := map[string]Float{
		"T1": {IsCritical: true, TotalFloat: 0},
		"T2": {IsCritical: false, TotalFloat: 3},
		"T3": {IsCritical: true, TotalFloat: 0},
		"T4": {IsCritical: false, TotalFloat: 3},
	}
	if diff := cmp.Diff(wantFloat, res.CriticalPath); diff != "" {
		t.Errorf("critical path mismatch (-want +got):\n%s", diff)
	}

	wantWindow := map[string]Window{
		"T1": {0, 5, 0, 5},
		"T2": {5, 8, 8, 11},
		"T3": {7, 11, 7, 11},
		"T4": {8, 8, 11, 11},
	}
	if diff := cmp.Diff(wantWindow, res.Schedule); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}

	// T4 is due on day 8 (2026-01-13), seven days out, with an unmet criterion
	wantRAG := map[string]rag.RAG{"T1": rag.Green, "T2": rag.Green, "T3": rag.Amber, "T4": rag.Amber}
	assert.Equal(t, wantRAG, res.TaskRAG)
	assert.Equal(t, rag.ReasonCompletedOnTime, res.Reasons["T1"])
	assert.Equal(t, rag.ReasonLowFloat, res.Reasons["T3"])
	assert.Equal(t, rag.ReasonGateCriteria, res.Reasons["T4"])

	assert.Equal(t, map[string]map[string]rag.RAG{
		"ws1": {"p1": rag.Green},
		"ws2": {"p1": rag.Amber},
	}, res.WorkstreamGateRAG)
	assert.Equal(t, map[string]rag.RAG{"p1": rag.Amber}, res.ProgramGateRAG)

	assert.Equal(t, map[string]Readiness{"T4": {Met: 1, Total: 2}}, res.GateReadiness)
	assert.Equal(t, []string{"T1", "T3"}, res.Chain)
	assert.Empty(t, res.Anomalies)
}

func TestCalculate_OverdueMilestoneFromAnchor(t *testing.T) {
	res, err := Calculate(workedSnapshot(), *day("2026-01-20"), testPolicy(), logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, rag.Red, res.TaskRAG["T4"])
	assert.Equal(t, rag.ReasonOverdue, res.Reasons["T4"])
	assert.Equal(t, rag.Red, res.ProgramGateRAG["p1"])
}

func TestCalculate_DoneWithoutActualEndIsOverdue(t *testing.T) {
	snap := &model.Snapshot{
		StrategyID: "s1",
		Tasks: []model.Task{
			{ID: "a", WorkstreamID: "ws", PhaseID: "p", DurationDays: 2,
				PlannedEnd: day("2026-01-10"), Status: model.StatusCompleted},
			{ID: "b", WorkstreamID: "ws", PhaseID: "p", DurationDays: 2,
				PlannedEnd: day("2026-01-10"), Status: model.StatusInProgress, PercentComplete: 100},
		},
	}

	res, err := Calculate(snap, *day("2026-02-01"), testPolicy(), logging.Discard())
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		assert.Equal(t, rag.Red, res.TaskRAG[id], id)
		assert.Equal(t, rag.ReasonOverdue, res.Reasons[id], id)
	}
}

func TestCalculate_ProjectStartFallsBackToAsOf(t *testing.T) {
	snap := workedSnapshot()
	for i := range snap.Tasks {
		snap.Tasks[i].PlannedStart = nil
	}
	res, err := Calculate(snap, time.Date(2026, 3, 2, 17, 45, 0, 0, time.UTC), testPolicy(), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", res.ProjectStart)
	assert.Equal(t, "2026-03-02", res.AsOf, "time of day is dropped")
}

func TestCalculate_ProjectStartUsesAnyTaskWhenRootsHaveNone(t *testing.T) {
	snap := workedSnapshot()
	snap.Tasks[0].PlannedStart = nil
	snap.Tasks[2].PlannedStart = day("2026-01-12")
	res, err := Calculate(snap, *day("2026-01-06"), testPolicy(), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-12", res.ProjectStart)
}

func TestCalculate_CycleProducesNoResult(t *testing.T) {
	snap := workedSnapshot()
	snap.Dependencies = append(snap.Dependencies, model.Dependency{PredecessorID: "T4", SuccessorID: "T1", Type: model.FinishToStart})

	res, err := Calculate(snap, *day("2026-01-06"), testPolicy(), logging.Discard())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, graph.ErrCycleDetected)

	var ce *graph.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Path, "T1")
	assert.Contains(t, ce.Path, "T4")
}

func TestCalculate_UnknownEndpointProceeds(t *testing.T) {
	snap := workedSnapshot()
	snap.Dependencies = append(snap.Dependencies, model.Dependency{PredecessorID: "T2", SuccessorID: "elsewhere", Type: model.FinishToStart})

	res, err := Calculate(snap, *day("2026-01-06"), testPolicy(), logging.Discard())
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, graph.AnomalyUnknownEndpoint, res.Anomalies[0].Kind)
	assert.Equal(t, 11, res.ProjectFinishDays)
}

func TestCalculate_EmptyStrategy(t *testing.T) {
	res, err := Calculate(&model.Snapshot{StrategyID: "empty"}, *day("2026-01-06"), testPolicy(), logging.Discard())
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"strategyId": "empty",
		"asOf": "2026-01-06",
		"projectStart": "2026-01-06",
		"projectFinishDays": 0,
		"taskRag": {},
		"workstreamGateRag": {},
		"programGateRag": {},
		"criticalPath": {},
		"schedule": {},
		"gateReadiness": {},
		"anomalies": []
	}`, string(data))
}

func TestResult_WireShape(t *testing.T) {
	res, err := Calculate(workedSnapshot(), *day("2026-01-06"), testPolicy(), logging.Discard())
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	for _, key := range []string{"taskRag", "workstreamGateRag", "programGateRag", "criticalPath"} {
		assert.Contains(t, wire, key)
	}
	assert.JSONEq(t, `{"isCritical":false,"totalFloat":3}`, string(mustGet(t, wire["criticalPath"], "T2")))
	assert.JSONEq(t, `{"p1":"AMBER"}`, string(wire["programGateRag"]))
	assert.NotContains(t, wire, "Reasons")
}

func mustGet(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	v, ok := m[key]
	require.True(t, ok, "missing key %s", key)
	return v
}

func TestCalculate_ShuffledInputSameResult(t *testing.T) {
	base, err := Calculate(workedSnapshot(), *day("2026-01-06"), testPolicy(), logging.Discard())
	require.NoError(t, err)

	snap := workedSnapshot()
	for i, j := 0, len(snap.Tasks)-1; i < j; i, j = i+1, j-1 {
		snap.Tasks[i], snap.Tasks[j] = snap.Tasks[j], snap.Tasks[i]
	}
	for i, j := 0, len(snap.Dependencies)-1; i < j; i, j = i+1, j-1 {
		snap.Dependencies[i], snap.Dependencies[j] = snap.Dependencies[j], snap.Dependencies[i]
	}
	shuffled, err := Calculate(snap, *day("2026-01-06"), testPolicy(), logging.Discard())
	require.NoError(t, err)

	if diff := cmp.Diff(base, shuffled); diff != "" {
		t.Errorf("result depends on input order (-base +shuffled):\n%s", diff)
	}
}

type fakeSource struct {
	snap *model.Snapshot
	err  error
}

func (f *fakeSource) LoadSnapshot(_ context.Context, strategyID string) (*model.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.snap == nil || f.snap.StrategyID != strategyID {
		return nil, errNotFound
	}
	return f.snap, nil
}

var errNotFound = errors.New("not found")

type fakeWriter struct {
	calls    int
	saved    []model.Schedule
	at       time.Time
	failWith error
}

func (f *fakeWriter) SaveSchedules(_ context.Context, _ string, s []model.Schedule, at time.Time) error {
	f.calls++
	if f.failWith != nil {
		return f.failWith
	}
	f.saved = s
	f.at = at
	return nil
}

func fixedClock() time.Time { return time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC) }

func TestEngine_ComputeWritesBack(t *testing.T) {
	w := &fakeWriter{}
	e := New(&fakeSource{snap: workedSnapshot()}, WithWriter(w), WithPolicy(testPolicy()), WithClock(fixedClock))

	res, err := e.Compute(context.Background(), "s1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-06", res.AsOf, "zero asOf uses the clock")

	require.Equal(t, 1, w.calls)
	require.Len(t, w.saved, 4)
	assert.Equal(t, model.Schedule{TaskID: "T2", EarlyStart: 5, EarlyFinish: 8, LateStart: 8, LateFinish: 11, TotalFloat: 3}, w.saved[1])
	assert.True(t, w.saved[0].IsCritical)
	assert.Equal(t, fixedClock(), w.at)
}

func TestEngine_WriteBackFailureFailsCompute(t *testing.T) {
	w := &fakeWriter{failWith: errors.New("disk full")}
	e := New(&fakeSource{snap: workedSnapshot()}, WithWriter(w), WithClock(fixedClock))

	res, err := e.Compute(context.Background(), "s1", time.Time{})
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "disk full")
}

func TestEngine_CycleSkipsWriteBack(t *testing.T) {
	snap := workedSnapshot()
	snap.Dependencies = append(snap.Dependencies, model.Dependency{PredecessorID: "T4", SuccessorID: "T2", Type: model.FinishToStart})
	w := &fakeWriter{}
	e := New(&fakeSource{snap: snap}, WithWriter(w))

	_, err := e.Compute(context.Background(), "s1", *day("2026-01-06"))
	assert.ErrorIs(t, err, graph.ErrCycleDetected)
	assert.Zero(t, w.calls)
}

func TestEngine_SourceErrorIsWrapped(t *testing.T) {
	e := New(&fakeSource{})
	_, err := e.Compute(context.Background(), "missing", *day("2026-01-06"))
	assert.ErrorIs(t, err, errNotFound)
}

func TestEngine_PolicyFuncReadEachCompute(t *testing.T) {
	policy := testPolicy()
	e := New(&fakeSource{snap: workedSnapshot()}, WithPolicyFunc(func() rag.Policy { return policy }))

	res, err := e.Compute(context.Background(), "s1", *day("2026-01-06"))
	require.NoError(t, err)
	assert.Equal(t, rag.Green, res.TaskRAG["T2"])

	policy.AmberThresholdDays = 3
	res, err = e.Compute(context.Background(), "s1", *day("2026-01-06"))
	require.NoError(t, err)
	assert.Equal(t, rag.Amber, res.TaskRAG["T2"])
}

func TestEngine_Validate(t *testing.T) {
	snap := workedSnapshot()
	snap.Dependencies = append(snap.Dependencies, model.Dependency{PredecessorID: "T1", SuccessorID: "T2", Type: model.StartToStart})
	e := New(&fakeSource{snap: snap}, WithClock(fixedClock))

	res, err := e.Validate(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, graph.AnomalyDuplicateEdge, res.Anomalies[0].Kind)
}

func TestStatic(t *testing.T) {
	e := New(Static(workedSnapshot()), WithClock(fixedClock))

	res, err := e.Compute(context.Background(), "s1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 11, res.ProjectFinishDays)

	_, err = e.Compute(context.Background(), "other", time.Time{})
	assert.Error(t, err)
}
