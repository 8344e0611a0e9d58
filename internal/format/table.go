package format

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
)

// maxCell caps a table cell so long descriptions do not wrap the terminal.
const maxCell = 48

// Rows is a rendered table: a header row and data rows.
type Rows struct {
	Header []string
	Data   [][]string
}

// Tabler is implemented by list results that support --format table.
type Tabler interface {
	Rows() Rows
}

// tableOf finds a Tabler either directly or under the "data" key of an
// output envelope.
func tableOf(v any) (Tabler, bool) {
	switch t := v.(type) {
	case Tabler:
		return t, true
	case map[string]any:
		if d, ok := t["data"].(Tabler); ok {
			return d, true
		}
	}
	return nil, false
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func WriteTable(w io.Writer, t Tabler) error {
	r := t.Rows()
	data := make([][]string, len(r.Data))
	for i, row := range r.Data {
		data[i] = make([]string, len(row))
		for j, cell := range row {
			data[i][j] = ansi.Truncate(cell, maxCell, "…")
		}
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(r.Header...).
		Rows(data...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
