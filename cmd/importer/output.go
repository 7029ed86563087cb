package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// column describes one table column; numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, Align: text.AlignLeft}
		if col.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	return tw.Render()
}

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type checkState int

const (
	checkInfo checkState = iota
	checkPassed
	checkFailed
)

var checkStyles = map[checkState]struct{ label, color string }{
	checkInfo:   {"INFO", "\x1b[34m"},
	checkPassed: {"OK", "\x1b[32m"},
	checkFailed: {"FAIL", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

// statusPrinter writes aligned "label: [STATE] detail" lines, colored when
// the destination is a terminal.
type statusPrinter struct {
	out   io.Writer
	color bool
}

func newStatusPrinter(out io.Writer) statusPrinter {
	return statusPrinter{out: out, color: isTerminal(out)}
}

func (p statusPrinter) paint(color, s string) string {
	if !p.color || color == "" {
		return s
	}
	return color + s + ansiReset
}

func (p statusPrinter) header(title string) {
	line := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(p.out, p.paint(checkStyles[checkInfo].color, line))
	fmt.Fprintln(p.out, p.paint(checkStyles[checkInfo].color, strings.Repeat("-", len(line))))
}

func (p statusPrinter) line(label string, state checkState, detail string) {
	style := checkStyles[state]
	status := "[" + style.label + "]"
	if detail != "" {
		status += " " + detail
	}
	fmt.Fprintln(p.out, p.paint(style.color, fmt.Sprintf("  %-24s %s", label+":", status)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
