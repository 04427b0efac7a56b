package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/model"
	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/rag"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintBanner renders the colored service banner.
func PrintBanner(w io.Writer, version string) {
	frame := color.New(color.FgCyan)
	brand := color.New(color.Bold, color.FgMagenta)
	lights := []*color.Color{
		color.New(color.FgRed),
		color.New(color.FgYellow),
		color.New(color.FgGreen),
	}

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +------------------------+")
	fmt.Fprint(w, "   |  ")
	for _, c := range lights {
		c.Fprint(w, "●  ")
	}
	frame.Fprint(w, "             |\n")
	brand.Fprintln(w, "   |  L E A D E R O S       |")
	frame.Fprintln(w, "   +------------------------+")
	fmt.Fprintf(w, "   %s\n\n", Dim("workstream schedule & gate status "+version))
}

// taskColors is a palette of distinct bold colors for differentiating tasks.
var taskColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldWhite,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
}

// taskColorIndex hashes a task ID to a palette index.
func taskColorIndex(taskID string) int {
	var h uint32
	for _, c := range taskID {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(taskColors)))
}

// TaskPrefix returns a colored [task-id] prefix string.
// Each task ID gets a distinct color from the palette.
func TaskPrefix(taskID string) string {
	c := taskColors[taskColorIndex(taskID)]
	return Dim("[") + c(taskID) + Dim("]")
}

// RAGBadge returns a fixed-width colored signal label. Absent renders as a dash.
func RAGBadge(r rag.RAG) string {
	switch r {
	case rag.Green:
		return BoldGreen("GREEN")
	case rag.Amber:
		return BoldYellow("AMBER")
	case rag.Red:
		return BoldRed(" RED ")
	default:
		return Dim("  -  ")
	}
}

// StatusIcon returns a colored task status icon for compact table display.
func StatusIcon(status model.TaskStatus) string {
	switch status {
	case model.StatusCompleted:
		return Green("✓")
	case model.StatusInProgress:
		return Cyan("●")
	case model.StatusBlocked:
		return Red("✗")
	case model.StatusOnHold:
		return Yellow("⊘")
	default:
		return Dim("◌")
	}
}
