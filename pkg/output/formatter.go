package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ritzau/distgraph/pkg/model"
)

// maxListed caps the ids printed per rank.
const maxListed = 8

// PrintRunReport prints a colored summary of a build.
func PrintRunReport(w io.Writer, rep *model.RunReport) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Distributed Graph - Build Report")
	bold.Fprintln(w, "================================")
	fmt.Fprintf(w, "Source: %s\n", rep.Source)
	fmt.Fprintf(w, "Partitioner: %s\n", rep.Partitioner)
	fmt.Fprintf(w, "Directed: %t\n", rep.Directed)
	fmt.Fprintf(w, "Duration: %dms\n", rep.DurationMs)
	fmt.Fprintln(w)

	if rep.Error != "" {
		red.Fprintln(w, "BUILD FAILED:")
		yellow.Fprintf(w, "  %s\n", rep.Error)
		if rep.FailedRank != nil {
			cyan.Fprintf(w, "    Rank: %d\n", *rep.FailedRank)
		}
		if len(rep.FailedIDs) > 0 {
			cyan.Fprintf(w, "    Nodes: %s\n", listIDs(rep.FailedIDs))
		}
		return
	}

	for _, rr := range rep.Ranks {
		bold.Fprintf(w, "Rank %d\n", rr.Rank)
		fmt.Fprintf(w, "  Owned: %d  Ghosts: %d  Edges: %d\n", rr.Owned, rr.Ghosts, rr.Edges)
		cyan.Fprintf(w, "  Owned ids: %s\n", listIDs(rr.OwnedIDs))
		if len(rr.GhostIDs) > 0 {
			cyan.Fprintf(w, "  Ghost ids: %s\n", listIDs(rr.GhostIDs))
		}
	}
	fmt.Fprintln(w)

	// Summary with color based on how far the largest rank is above the mean
	imbalance := Imbalance(rep)
	summaryColor := green
	if imbalance > 1.1 {
		summaryColor = yellow
	}
	if imbalance > 1.5 {
		summaryColor = red
	}
	summaryColor.Fprintf(w, "Summary: %d nodes over %d ranks, imbalance %.2f\n", rep.TotalOwned(), len(rep.Ranks), imbalance)

	if imbalance == 1.0 {
		green.Fprintln(w, "✓ Every rank owns the same number of nodes!")
	}
}

// Imbalance returns the largest owned count divided by the mean owned
// count, or 1 for an empty report.
func Imbalance(rep *model.RunReport) float64 {
	total := rep.TotalOwned()
	if total == 0 || len(rep.Ranks) == 0 {
		return 1
	}
	largest := 0
	for _, rr := range rep.Ranks {
		largest = max(largest, rr.Owned)
	}
	return float64(largest) * float64(len(rep.Ranks)) / float64(total)
}

func listIDs(ids []int64) string {
	if len(ids) <= maxListed {
		return fmt.Sprint(ids)
	}
	return fmt.Sprintf("%v ... (%d more)", ids[:maxListed], len(ids)-maxListed)
}
