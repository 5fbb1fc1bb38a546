package main

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/sensorable/vocyolo"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, rounded bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	if rounded {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderSummary(s *vocyolo.Summary, rounded bool) string {
	rows := [][]string{
		{"Descriptors", strconv.Itoa(s.Descriptors)},
		{"Relevant", strconv.Itoa(s.Relevant)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Train images", strconv.Itoa(len(s.Train))},
		{"Val images", strconv.Itoa(len(s.Val))},
		{"Label lines", strconv.Itoa(s.Labels)},
		{"Orphans", strconv.Itoa(len(s.Orphans))},
		{"In both splits", strconv.Itoa(len(s.Overlap))},
		{"Failures", strconv.Itoa(len(s.Failures))},
	}
	return renderTable([]string{"Item", "Count"}, rows, []columnAlignment{alignLeft, alignRight}, rounded)
}

func renderFailures(failures []vocyolo.Failure, rounded bool) string {
	rows := make([][]string, len(failures))
	for i, f := range failures {
		rows[i] = []string{f.ID, f.Stage, f.Err.Error()}
	}
	return renderTable([]string{"Image", "Stage", "Error"}, rows, nil, rounded)
}

// shouldUseRoundedStyle reports whether writer is a terminal. Redirected output gets plain ASCII.
func shouldUseRoundedStyle(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
