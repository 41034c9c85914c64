package logger

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

type Table struct {
	headers   []string
	rows      [][]string
	out       io.Writer
	colorized bool
}

func NewTable(headers []string, out io.Writer, colorized bool) *Table {
	return &Table{
		headers:   headers,
		out:       out,
		colorized: colorized,
	}
}

// AddRow appends a row, padding or truncating it to the header width.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	} else if len(cells) < len(t.headers) {
		padded := make([]string, len(t.headers))
		copy(padded, cells)
		cells = padded
	}

	t.rows = append(t.rows, cells)
}

func (t *Table) Rows() [][]string {
	return t.rows
}

func (t *Table) String() string {
	tb := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.headers...).
		Rows(t.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 && t.colorized {
				return headerStyle
			}
			return cellStyle
		})
	return tb.String()
}

func (t *Table) Print() {
	fmt.Fprintln(t.out, t.String())
}
