package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// column describes one table column.
type column struct {
	header string
	right  bool
}

// formatTable lays rows out under cols, one space between columns. Rows
// shorter than cols get empty cells.
func formatTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = displayWidth(c.header)
	}
	for _, row := range rows {
		for i := range cols {
			if i < len(row) {
				widths[i] = max(widths[i], displayWidth(row[i]))
			}
		}
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.header
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinCells(cols, widths, headers))
	for _, row := range rows {
		lines = append(lines, joinCells(cols, widths, row))
	}
	return lines
}

func joinCells(cols []column, widths []int, row []string) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		pad := strings.Repeat(" ", max(0, widths[i]-displayWidth(value)))
		if c.right {
			cells[i] = pad + value
		} else {
			cells[i] = value + pad
		}
	}
	return strings.Join(cells, " ")
}

// displayWidth counts terminal cells; kana and kanji take two.
func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
