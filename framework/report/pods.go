package report

import (
	"strings"
)

// PodsHeader is the header row of the pods table
var PodsHeader = []string{"Pod / group", "Count", "Limits", "Requests"}

const podsColumns = 4

// ParsePodsTable splits the pods section into 4-column rows. Cells are
// separated by "|" or tabs. Short rows are padded and long rows truncated;
// no row is dropped. Only blank lines, "#" lines and a lone empty-section
// placeholder are skipped. Header and markdown separator rows the model
// writes are kept as ordinary rows.
func ParsePodsTable(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var cells []string
		for _, c := range strings.Split(strings.ReplaceAll(line, "|", "\t"), "\t") {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}

		if len(cells) == 0 || (len(cells) == 1 && cells[0] == Placeholder) {
			continue
		}

		row := make([]string, podsColumns)
		copy(row, cells)
		rows = append(rows, row)
	}
	return rows
}
