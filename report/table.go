package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/datar-psa/goeqa/aggregate"
)

// columnAlignment keeps the label column left and right-aligns the figures.
func columnAlignment(columns int) []tw.Align {
	align := make([]tw.Align, columns)
	for i := range align {
		align[i] = tw.AlignRight
	}
	if columns > 0 {
		align[0] = tw.AlignLeft
	}
	return align
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	align := columnAlignment(len(headers))
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft, PerColumn: align},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight, PerColumn: align},
		},
		MaxWidth: 100,
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Right: tw.On, Top: tw.Off, Bottom: tw.Off},
		}),
	)
}

// Table writes the summary as a markdown table with one row per category and
// a closing Total row. Skipped questions are listed below the table.
func Table(w io.Writer, s aggregate.Summary) error {
	headers := []string{"Category", "Questions", "Score"}
	if s.HasSPL {
		headers = append(headers, "SPL")
	}
	table := newTable(w, headers)

	for _, c := range s.Categories {
		row := []string{c.Category, strconv.Itoa(c.Count), fmt.Sprintf("%.2f", c.Mean)}
		if s.HasSPL {
			row = append(row, fmt.Sprintf("%.2f", c.SPLMean))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	total := []string{"Total", strconv.Itoa(s.Count), figure(s, s.Total)}
	if s.HasSPL {
		total = append(total, figure(s, s.TotalSPL))
	}
	if err := table.Append(total); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped %d question(s):\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			fmt.Fprintf(w, "- %s: %s\n", sk.QuestionID, sk.Reason)
		}
	}
	return nil
}
