// Package report prints aggregation summaries.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/datar-psa/goeqa/aggregate"
)

// Text writes the plain line report: skipped questions, then the category
// means and the flat totals, two decimals each.
func Text(w io.Writer, s aggregate.Summary) error {
	bw := bufio.NewWriter(w)
	for _, sk := range s.Skipped {
		fmt.Fprintf(bw, "skipped %s: %s\n", sk.QuestionID, sk.Reason)
	}
	for _, c := range s.Categories {
		fmt.Fprintf(bw, "%s: %.2f\n", c.Category, c.Mean)
		if s.HasSPL {
			fmt.Fprintf(bw, "%s SPL: %.2f\n", c.Category, c.SPLMean)
		}
	}
	fmt.Fprintf(bw, "Total: %s\n", figure(s, s.Total))
	if s.HasSPL {
		fmt.Fprintf(bw, "Total SPL: %s\n", figure(s, s.TotalSPL))
	}
	return bw.Flush()
}

func figure(s aggregate.Summary, v float64) string {
	if s.Count == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
