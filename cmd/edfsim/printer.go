package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gookit/color"

	"edfsim"
)

const CELL_WIDTH = 10

func printTaskSet(w io.Writer, cfg *edfsim.Config) {
	fmt.Fprintln(w, color.Cyan.Sprintf("Task set (U=%.3f):", cfg.Tasks.Utilization()))
	for _, td := range cfg.Tasks {
		fmt.Fprintf(w, "  %v\n", td)
	}
	fmt.Fprintln(w, color.Cyan.Sprint("Frequencies:"))
	for _, op := range cfg.Frequencies.Sorted() {
		fmt.Fprintf(w, "  %v\n", op)
	}
}

// prints each row of a run as it is produced: idle ticks dimmed, completions highlighted
type tracePrinter struct {
	w       io.Writer
	policy  edfsim.Policy
	started bool
}

func newTracePrinter(w io.Writer) *tracePrinter {
	return &tracePrinter{w: w}
}

func padCells(cells []string) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteString(fmt.Sprintf("%-*s", CELL_WIDTH, c))
	}
	return strings.TrimRight(b.String(), " ")
}

func (tp *tracePrinter) Row(p edfsim.Policy, r edfsim.TraceRow) {
	if !tp.started || p != tp.policy {
		tp.started, tp.policy = true, p
		fmt.Fprintln(tp.w, color.Magenta.Sprintf("\n%v", p))
	}
	line := padCells(r.Cells())
	switch {
	case r.Idle():
		line = color.Gray.Sprint(line)
	case r.Completed:
		line = color.Green.Sprint(line)
	}
	fmt.Fprintln(tp.w, line)
}

func (tp *tracePrinter) Summary(p edfsim.Policy, s edfsim.SummaryRow) {
	line := padCells(s.Cells())
	if s.Missed > 0 {
		fmt.Fprintln(tp.w, color.Error.Sprint(line))
		return
	}
	fmt.Fprintln(tp.w, color.Info.Sprint(line))
}

func printComparison(w io.Writer, cmp *edfsim.Comparison) {
	fmt.Fprintln(w, color.Cyan.Sprintf("\nResults (U=%.3f, hyperperiod %v):", cmp.Utilization, cmp.Hyperperiod))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "policy\toperating point\tenergy\tidle\tmissed\tavg freq\t")
	for _, res := range cmp.Results {
		fmt.Fprintf(tw, "%v\t%v\t%.2fJ\t%.2fs\t%d\t%.3fGHz\t\n",
			res.Policy, res.OperatingPoint, res.Energy, res.IdleTime, res.Missed, res.AvgFrequency)
	}
	tw.Flush()

	for _, res := range cmp.Results {
		fmt.Fprintln(w, color.Magenta.Sprintf("\n%v", res.Policy))
		for _, ts := range res.Tasks {
			fmt.Fprintf(w, "  %v\n", ts)
		}
		for _, fr := range res.Residency {
			fmt.Fprintf(w, "  %.2fGHz: %v\n", fr.Frequency, fr.Ticks)
		}
	}
}
