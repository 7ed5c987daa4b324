package export

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownExporter renders a pipe table, small enough to paste into chat.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(table *Table, w io.Writer) error {
	var b strings.Builder

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range table.Columns {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "|", `\|`)
			}
			fmt.Fprintf(&b, " %s |", cell)
		}
		b.WriteString("\n")
	}

	writeRow(table.Columns)
	b.WriteString("|")
	for range table.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range table.Rows {
		writeRow(row)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}

func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}
