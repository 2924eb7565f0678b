// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package digest

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const titleWidth = 70

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// WriteTable prints papers as a terminal table. The score column is shown
// only when at least one paper is annotated.
func WriteTable(w io.Writer, papers []types.Paper) error {
	scored := false
	for _, p := range papers {
		if p.Relevance != nil {
			scored = true
			break
		}
	}

	tw := newTableWriter()
	header := table.Row{"#", "ID", "Submitted"}
	if scored {
		header = append(header, "Score")
	}
	header = append(header, "Title")
	tw.AppendHeader(header)

	for i, p := range papers {
		row := table.Row{i + 1, p.ID, p.Submitted}
		if scored {
			score := "-"
			if p.Relevance != nil {
				score = strconv.Itoa(p.Relevance.Score)
			}
			row = append(row, score)
		}
		row = append(row, p.Title)
		tw.AppendRow(row)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Name: "Score", Align: text.AlignRight},
		{Name: "Title", WidthMax: titleWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

// WriteGrid prints rows of text under header in the same style as
// WriteTable. Columns named in rightAligned (1-based) are right aligned;
// missing cells render empty.
func WriteGrid(w io.Writer, header []string, rows [][]string, rightAligned ...int) error {
	if len(header) == 0 {
		return nil
	}

	tw := newTableWriter()
	hr := make(table.Row, len(header))
	for i, h := range header {
		hr[i] = h
	}
	tw.AppendHeader(hr)

	for _, row := range rows {
		r := make(table.Row, len(header))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, n := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}
