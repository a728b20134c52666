package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintLogo renders the colored sprintloom logo.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	days := color.New(color.FgYellow)
	threads := color.New(color.FgCyan, color.Faint)
	sep := color.New(color.FgCyan)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +--------------------------------+")
	days.Fprintln(w, "   |  M  T  W  T  F  M  T  W  T  F  |")
	threads.Fprintln(w, "   |  |  |  |  |  |  |  |  |  |  |  |")
	sep.Fprintln(w, "   |================================|")
	brand.Fprintln(w, "   |  S  P  R  I  N  T  L  O  O  M  |")
	sep.Fprintln(w, "   |================================|")
	threads.Fprintln(w, "   |  |  |  |  |  |  |  |  |  |  |  |")
	frame.Fprintln(w, "   +--------------------------------+")
	tag.Fprintf(w, "   %s Critical paths and sprint forecasts\n", Dim("📅"))
	fmt.Fprintln(w)
}

// taskColors is a palette of distinct bold colors for differentiating assignees.
var taskColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// colorIndex hashes a name to a palette index.
func colorIndex(name string) int {
	var h uint32
	for _, c := range name {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(taskColors)))
}

// Assignee returns the name in a color stable for that name.
func Assignee(name string) string {
	return taskColors[colorIndex(name)](name)
}

// TaskPrefix returns a colored [task-id] prefix string.
// Each task ID gets a distinct color from the palette.
func TaskPrefix(taskID string) string {
	c := taskColors[colorIndex(taskID)]
	return Dim("[") + c(taskID) + Dim("]")
}

// StatusIcon returns a colored icon for a task's role in a result.
func StatusIcon(role string) string {
	switch role {
	case "critical":
		return BoldYellow("⚡")
	case "target":
		return BoldGreen("◎")
	case "blocker":
		return Red("✗")
	case "cyclic":
		return BoldRed("↻")
	case "forced":
		return Yellow("⊘")
	default:
		return Dim("◌")
	}
}

// Slack returns a colored slack figure: red when zero, yellow when under a
// day, dim otherwise.
func Slack(days float64) string {
	s := fmt.Sprintf("%.1fd", days)
	switch {
	case days <= 1e-9:
		return Red(s)
	case days < 1:
		return Yellow(s)
	default:
		return Dim(s)
	}
}

// Delta returns a colored day delta: green when the sprint gets shorter.
func Delta(days int) string {
	switch {
	case days > 0:
		return BoldGreen(fmt.Sprintf("-%d days", days))
	case days < 0:
		return BoldRed(fmt.Sprintf("+%d days", -days))
	default:
		return Dim("no change")
	}
}
