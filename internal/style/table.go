package style

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Alignment controls cell placement within a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Column describes one table column.
type Column struct {
	Name  string
	Width int
	Align Alignment
}

// Table renders rows into fixed-width columns with an optional header
// separator. Cells wider than their column are truncated with an
// ellipsis. All mutating methods return the table for chaining.
type Table struct {
	columns   []Column
	rows      [][]string
	indent    string
	headerSep bool
}

// NewTable returns a table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns:   columns,
		indent:    "  ",
		headerSep: true,
	}
}

// SetIndent sets the prefix written before every line.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetHeaderSeparator toggles the rule between header and rows.
func (t *Table) SetHeaderSeparator(on bool) *Table {
	t.headerSep = on
	return t
}

// AddRow appends a row. Missing cells are padded with empty strings;
// extra cells are dropped.
func (t *Table) AddRow(cells ...string) *Table {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.rows = append(t.rows, row)
	return t
}

// Render returns the formatted table, one line per row, each line
// newline-terminated. A table with no columns renders as nothing.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var b strings.Builder

	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		name := truncateCell(col.Name, col.Width)
		cells[i] = t.pad(Bold.Render(name), name, col.Width, col.Align)
	}
	b.WriteString(t.indent + strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")

	if t.headerSep {
		width := 0
		for i, col := range t.columns {
			if i > 0 {
				width += 2
			}
			width += col.Width
		}
		b.WriteString(t.indent + Dim.Render(strings.Repeat("─", width)) + "\n")
	}

	for _, row := range t.rows {
		for i, col := range t.columns {
			cell := truncateCell(row[i], col.Width)
			cells[i] = t.pad(cell, cell, col.Width, col.Align)
		}
		b.WriteString(t.indent + strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")
	}

	return b.String()
}

// pad places styled text within width columns, measuring by the plain
// (unstyled) form so ANSI sequences don't count against the width.
// Text already at or past the width is returned unpadded.
func (t *Table) pad(styled, plain string, width int, align Alignment) string {
	gap := width - utf8.RuneCountInString(plain)
	if gap <= 0 {
		return styled
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + styled
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", gap-left)
	default:
		return styled + strings.Repeat(" ", gap)
	}
}

// truncateCell shortens s to fit width, marking the cut with an
// ellipsis when there is room for one.
func truncateCell(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripAnsi removes ANSI color sequences, leaving plain text.
func stripAnsi(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}
