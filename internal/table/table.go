// Package table renders plain-text tables with box borders. Cell widths
// ignore ANSI color sequences, so colored cells stay aligned.
package table

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Alignment of the text within a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func displayWidth(s string) int {
	return runewidth.StringWidth(stripAnsi(s))
}

// Table accumulates a header and rows and writes them on Render.
type Table struct {
	w           io.Writer
	header      []string
	rows        [][]string
	columnAlign []Alignment
	headerAlign []Alignment
}

// NewTable returns an empty table that renders to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

func (t *Table) WithColumnAlignment(align []Alignment) *Table {
	t.columnAlign = align
	return t
}

func (t *Table) WithHeaderAlignment(align []Alignment) *Table {
	t.headerAlign = align
	return t
}

func (t *Table) WithRows(rows [][]string) *Table {
	t.rows = append(t.rows, rows...)
	return t
}

func (t *Table) Append(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) columns() int {
	n := len(t.header)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	return n
}

func (t *Table) widths(n int) []int {
	widths := make([]int, n)
	for i, cell := range t.header {
		widths[i] = displayWidth(cell)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}
	return widths
}

// Render writes the table. Missing cells render empty.
func (t *Table) Render() error {
	n := t.columns()
	if n == 0 {
		return nil
	}
	widths := t.widths(n)
	var sb strings.Builder
	separator := t.separator(widths)
	sb.WriteString(separator)
	if len(t.header) > 0 {
		t.writeRow(&sb, t.header, widths, t.headerAlign)
		sb.WriteString(separator)
	}
	for _, row := range t.rows {
		t.writeRow(&sb, row, widths, t.columnAlign)
	}
	if len(t.rows) > 0 {
		sb.WriteString(separator)
	}
	_, err := io.WriteString(t.w, sb.String())
	return err
}

func (t *Table) separator(widths []int) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteByte('+')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func (t *Table) writeRow(sb *strings.Builder, row []string, widths []int, align []Alignment) {
	sb.WriteByte('|')
	for i, w := range widths {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		a := AlignLeft
		if i < len(align) {
			a = align[i]
		}
		fmt.Fprintf(sb, " %s |", pad(cell, w, a))
	}
	sb.WriteByte('\n')
}

func pad(s string, width int, align Alignment) string {
	gap := width - displayWidth(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}
