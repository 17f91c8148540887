package output

import (
	"io"
	"strings"
	"unicode/utf8"
)

// columnGap separates table columns.
const columnGap = "  "

// Table lays out rows in aligned columns under a dashed header. Widths are
// counted in runes so wallet names outside ASCII line up.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Rows may be shorter or longer than the header.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table to w. An empty table writes nothing.
func (t *Table) Render(w io.Writer) error {
	_, err := io.WriteString(w, t.String())
	return err
}

// String returns the rendered table.
func (t *Table) String() string {
	widths := t.widths()
	if len(widths) == 0 {
		return ""
	}

	var sb strings.Builder
	if len(t.headers) > 0 {
		writeRow(&sb, t.headers, widths)
		dashes := make([]string, len(widths))
		for i, n := range widths {
			dashes[i] = strings.Repeat("-", n)
		}
		writeRow(&sb, dashes, widths)
	}
	for _, row := range t.rows {
		writeRow(&sb, row, widths)
	}
	return sb.String()
}

func (t *Table) widths() []int {
	var widths []int
	measure := func(cells []string) {
		for i, cell := range cells {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

// writeRow pads every cell to its column width and drops trailing blanks.
func writeRow(sb *strings.Builder, cells []string, widths []int) {
	var line strings.Builder
	for i, n := range widths {
		if i > 0 {
			line.WriteString(columnGap)
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		line.WriteString(cell)
		line.WriteString(strings.Repeat(" ", n-utf8.RuneCountInString(cell)))
	}
	sb.WriteString(strings.TrimRight(line.String(), " "))
	sb.WriteByte('\n')
}
