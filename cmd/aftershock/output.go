package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printResult writes a human summary on a terminal and JSON everywhere else
func printResult(w io.Writer, result aftershock.Result, asJSON bool) error {
	if asJSON || !isTerminal(w) {
		return printJSON(w, result)
	}
	return printSummary(w, result)
}

func printSummary(w io.Writer, result aftershock.Result) error {
	icon := "❌"
	switch result.Verdict {
	case aftershock.VerdictHighProbability:
		icon = "🎯"
	case aftershock.VerdictLowProbability:
		icon = "✅"
	case aftershock.VerdictNoTrade:
		icon = "⏸"
	}

	fmt.Fprintf(w, "%s %s  (%d/%d)\n\n", icon, result.Verdict, result.SetupScore, result.SetupScoreMax)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tPOINTS\tDETAIL")
	for _, reason := range result.Reasons {
		points := "-"
		if reason.Scored() {
			points = fmt.Sprintf("%d/%d", *reason.Points, *reason.MaxPoints)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", reason.Tag, points, reason.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ev := result.Evidence
	if ev.Zone != "" {
		fmt.Fprintf(w, "\nZone: %s", ev.Zone)
		if ev.MTF != nil {
			fmt.Fprintf(w, "   Trends: %s / %s / %s", ev.MTF.Short, ev.MTF.Mid, ev.MTF.Long)
		}
		fmt.Fprintln(w)
	}
	return nil
}
