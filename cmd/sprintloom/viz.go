package main

import (
	"fmt"
	"io"

	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/joshharrison/sprintloom/internal/ui"
)

func printASCIIDAG(w io.Writer, g *graph.ProjectGraph, res *cpm.CPMResult) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, wave := range res.Waves {
		fmt.Fprintf(w, "%s 🌊 Wave %d %s\n", ui.Cyan("──"), wave.Index+1, ui.Cyan("──────────────────────────────"))
		for _, id := range wave.TaskIDs {
			crit := " "
			if res.Tasks[id].IsCritical {
				crit = ui.BoldYellow("⚡")
			}
			printNode(w, g, id, crit)
		}
		fmt.Fprintln(w)
	}

	if len(res.Cyclic) > 0 {
		fmt.Fprintf(w, "%s ↻ Cycle %s\n", ui.Red("──"), ui.Red("──────────────────────────────"))
		for _, id := range res.Cyclic {
			printNode(w, g, id, ui.BoldRed("↻"))
		}
		fmt.Fprintln(w)
	}
}

func printNode(w io.Writer, g *graph.ProjectGraph, id, marker string) {
	n := g.Nodes[id]
	fmt.Fprintf(w, "  %s [%s] %s\n", marker, ui.BoldMagenta(id), n.Name)

	// Show edges
	for _, blocked := range n.Successors {
		fmt.Fprintf(w, "      %s %s\n", ui.Dim("└──→"), ui.Magenta(blocked))
	}
}

func printDOT(w io.Writer, g *graph.ProjectGraph, res *cpm.CPMResult) {
	cyclic := make(map[string]bool, len(res.Cyclic))
	for _, id := range res.Cyclic {
		cyclic[id] = true
	}
	critical := func(id string) bool {
		ts, ok := res.Tasks[id]
		return ok && ts.IsCritical
	}

	fmt.Fprintln(w, "digraph sprintloom {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for _, id := range g.Order {
		n := g.Nodes[id]
		label := fmt.Sprintf("%s\\n%s (%gd)", id, n.Name, n.Duration)
		attrs := fmt.Sprintf(`label="%s"`, label)
		switch {
		case critical(id):
			attrs += `, style="rounded,bold", color=red`
		case cyclic[id]:
			attrs += `, style="rounded,dashed", color=orange`
		}
		fmt.Fprintf(w, "  %q [%s];\n", id, attrs)
	}

	fmt.Fprintln(w)

	for _, from := range g.Order {
		for _, to := range g.Nodes[from].Successors {
			style := ""
			if critical(from) && critical(to) {
				style = ` [color=red, penwidth=2]`
			}
			fmt.Fprintf(w, "  %q -> %q%s;\n", from, to, style)
		}
	}

	fmt.Fprintln(w, "}")
}
