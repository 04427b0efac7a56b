package reporter

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/engine"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/rag"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/ui"
)

// Reporter renders a computed strategy for the terminal.
type Reporter struct {
	Result   *engine.Result
	Snapshot *model.Snapshot

	tasks map[string]*model.Task
}

// New creates a new Reporter. The snapshot supplies names and display order.
func New(res *engine.Result, snap *model.Snapshot) *Reporter {
	r := &Reporter{
		Result:   res,
		Snapshot: snap,
		tasks:    make(map[string]*model.Task, len(snap.Tasks)),
	}
	for i := range snap.Tasks {
		r.tasks[snap.Tasks[i].ID] = &snap.Tasks[i]
	}
	return r
}

// PrintReport writes the schedule grouped by early-start wave, the gate
// matrix, the critical chain and any dropped dependencies.
func (r *Reporter) PrintReport(w io.Writer) {
	res := r.Result
	counts := map[rag.RAG]int{}
	for _, s := range res.TaskRAG {
		counts[s]++
	}

	fmt.Fprintf(w, "%s %s %s\n", ui.BoldCyan("📋 Strategy"), ui.Bold(res.StrategyID), ui.Dim("as of "+res.AsOf))
	fmt.Fprintf(w, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(w, "Start:     %s\n", res.ProjectStart)
	fmt.Fprintf(w, "Finish:    %s %s\n", r.finishDate(), ui.Dim(fmt.Sprintf("(day %d)", res.ProjectFinishDays)))
	fmt.Fprintf(w, "Tasks:     %d  %s  %s  %s\n\n", len(res.TaskRAG),
		ui.Green(fmt.Sprintf("%d green", counts[rag.Green])),
		ui.Yellow(fmt.Sprintf("%d amber", counts[rag.Amber])),
		ui.Red(fmt.Sprintf("%d red", counts[rag.Red])))

	for _, wave := range res.Waves {
		fmt.Fprintf(w, "  🌊 %s %d %s\n", ui.BoldWhite("WAVE"), wave.Index+1, ui.Dim(fmt.Sprintf("(day %d)", wave.Start)))
		for _, id := range wave.TaskIDs {
			r.printTask(w, id)
		}
		fmt.Fprintln(w)
	}

	r.PrintGates(w)

	if len(res.Chain) > 0 {
		fmt.Fprintf(w, "Critical:  %s\n", ui.BoldYellow("⚡ "+strings.Join(res.Chain, " → ")))
	}

	if len(res.Anomalies) > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.BoldYellow("Dropped dependencies:"))
		for _, a := range res.Anomalies {
			fmt.Fprintf(w, "  %s %s → %s  %s\n", ui.Yellow("!"), a.PredecessorID, a.SuccessorID,
				ui.Dim(fmt.Sprintf("(%s: %s)", a.Kind, a.Detail)))
		}
	}
}

func (r *Reporter) printTask(w io.Writer, id string) {
	res := r.Result
	win := res.Schedule[id]
	fl := res.CriticalPath[id]

	name := id
	status := model.StatusNotStarted
	if t := r.tasks[id]; t != nil {
		if t.Name != "" {
			name = t.Name
		}
		status = t.Status
		if t.IsMilestone {
			name = "◆ " + name
		}
	}
	if len(name) > 36 {
		name = name[:33] + "..."
	}

	critical := " "
	if fl.IsCritical {
		critical = ui.BoldYellow("⚡")
	}

	fmt.Fprintf(w, "    %s %s %s %-36s %s  %s  %s\n",
		ui.StatusIcon(status),
		ui.RAGBadge(res.TaskRAG[id]),
		ui.TaskPrefix(id),
		name,
		critical,
		ui.Dim(fmt.Sprintf("d%d–d%d float %d", win.EarlyStart, win.EarlyFinish, fl.TotalFloat)),
		ui.Dim(string(res.Reasons[id])),
	)
}

// PrintGates writes the workstream × phase gate matrix with the program row.
func (r *Reporter) PrintGates(w io.Writer) {
	res := r.Result
	wsIDs, wsNames := r.workstreams()
	phaseIDs, phaseNames := r.phases()
	if len(phaseIDs) == 0 {
		return
	}

	width := 12
	for _, id := range wsIDs {
		width = max(width, len(wsNames[id]))
	}

	fmt.Fprintf(w, "%s\n", ui.BoldCyan("Gates"))
	fmt.Fprintf(w, "  %-*s", width, "")
	for _, id := range phaseIDs {
		fmt.Fprintf(w, "  %-7s", truncate(phaseNames[id], 7))
	}
	fmt.Fprintln(w)

	for _, ws := range wsIDs {
		fmt.Fprintf(w, "  %-*s", width, wsNames[ws])
		for _, ph := range phaseIDs {
			fmt.Fprintf(w, "  %s  ", ui.RAGBadge(res.WorkstreamGateRAG[ws][ph]))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  %-*s", width, ui.Bold("Program"))
	for _, ph := range phaseIDs {
		fmt.Fprintf(w, "  %s  ", ui.RAGBadge(res.ProgramGateRAG[ph]))
	}
	fmt.Fprintln(w)

	if len(res.GateReadiness) > 0 {
		ids := make([]string, 0, len(res.GateReadiness))
		for id := range res.GateReadiness {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintf(w, "\n  %s\n", ui.Bold("Gate readiness"))
		for _, id := range ids {
			rd := res.GateReadiness[id]
			mark := ui.Green(fmt.Sprintf("%d/%d", rd.Met, rd.Total))
			if rd.Met < rd.Total {
				mark = ui.Yellow(fmt.Sprintf("%d/%d", rd.Met, rd.Total))
			}
			fmt.Fprintf(w, "    %s %s criteria met\n", ui.TaskPrefix(id), mark)
		}
	}
	fmt.Fprintln(w)
}

// PrintValidation writes the graph check summary used by validate.
func (r *Reporter) PrintValidation(w io.Writer) {
	res := r.Result
	fmt.Fprintf(w, "%s %s\n", ui.BoldGreen("✅ Valid"), ui.Dim(res.StrategyID))
	fmt.Fprintf(w, "Tasks:       %d\n", len(res.Schedule))
	fmt.Fprintf(w, "Edges:       %d\n", len(r.Snapshot.Dependencies)-len(res.Anomalies))
	fmt.Fprintf(w, "Waves:       %d\n", len(res.Waves))
	fmt.Fprintf(w, "Finish:      day %d\n", res.ProjectFinishDays)
	if len(res.Anomalies) == 0 {
		fmt.Fprintf(w, "Anomalies:   %s\n", ui.Green("none"))
		return
	}
	fmt.Fprintf(w, "Anomalies:   %s\n", ui.Yellow(fmt.Sprintf("%d dropped", len(res.Anomalies))))
	for _, a := range res.Anomalies {
		fmt.Fprintf(w, "  %s %-16s %s → %s\n", ui.Yellow("!"), a.Kind, a.PredecessorID, a.SuccessorID)
	}
}

// JSON returns the machine-readable result.
func (r *Reporter) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Result, "", "  ")
}

func (r *Reporter) finishDate() string {
	start, err := time.Parse(model.DateLayout, r.Result.ProjectStart)
	if err != nil {
		return "?"
	}
	return model.AddDays(start, r.Result.ProjectFinishDays).Format(model.DateLayout)
}

// workstreams returns workstream IDs in display order with their names. IDs
// seen only in the result are appended in ID order.
func (r *Reporter) workstreams() ([]string, map[string]string) {
	var ids []string
	names := make(map[string]string)
	ws := slices.Clone(r.Snapshot.Workstreams)
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].SortOrder != ws[j].SortOrder {
			return ws[i].SortOrder < ws[j].SortOrder
		}
		return ws[i].ID < ws[j].ID
	})
	for _, w := range ws {
		ids = append(ids, w.ID)
		names[w.ID] = cmp.Or(w.Name, w.ID)
	}
	var extra []string
	for id := range r.Result.WorkstreamGateRAG {
		if _, ok := names[id]; !ok {
			extra = append(extra, id)
			names[id] = id
		}
	}
	sort.Strings(extra)
	return append(ids, extra...), names
}

// phases returns phase IDs in sequence order with their names.
func (r *Reporter) phases() ([]string, map[string]string) {
	var ids []string
	names := make(map[string]string)
	ph := slices.Clone(r.Snapshot.Phases)
	sort.SliceStable(ph, func(i, j int) bool {
		if ph[i].Sequence != ph[j].Sequence {
			return ph[i].Sequence < ph[j].Sequence
		}
		return ph[i].ID < ph[j].ID
	})
	for _, p := range ph {
		ids = append(ids, p.ID)
		names[p.ID] = cmp.Or(p.Name, p.ID)
	}
	var extra []string
	for id := range r.Result.ProgramGateRAG {
		if _, ok := names[id]; !ok {
			extra = append(extra, id)
			names[id] = id
		}
	}
	sort.Strings(extra)
	return append(ids, extra...), names
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
