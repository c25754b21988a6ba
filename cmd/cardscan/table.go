package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// minWrapWidth keeps wrapped columns readable on narrow terminals.
const minWrapWidth = 20

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return renderWrappedTable(headers, rows, aligns, -1, 0)
}

// renderWrappedTable renders like renderTable but caps the wrapColumn'th
// column (zero-based) at wrapWidth characters. A negative column or
// non-positive width disables wrapping.
func renderWrappedTable(headers []string, rows [][]string, aligns []columnAlignment, wrapColumn, wrapWidth int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

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
		cc := table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
		if i == wrapColumn && wrapWidth > 0 {
			cc.WidthMax = wrapWidth
		}
		columnConfigs = append(columnConfigs, cc)
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// terminalWidth returns the writer's terminal width, or 0 when the writer is
// not a terminal.
func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(file.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

// wrapWidthFor gives the room left for a free-text column once the fixed
// columns have taken their share of the terminal.
func wrapWidthFor(termWidth, fixed int) int {
	if termWidth <= 0 {
		return 0
	}
	if room := termWidth - fixed; room > minWrapWidth {
		return room
	}
	return minWrapWidth
}
