package export

import (
	"fmt"
	"io"
)

// Table is a rectangular report: one header row plus data rows, all cells
// already rendered as strings.
type Table struct {
	Name    string     `json:"name" yaml:"name"`
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(table *Table, w io.Writer) error
	Extension() string
	ContentType() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "", "csv":
		return &CSVExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: csv, yaml, json, md)", format)
	}
}

// Filename builds "<name>_<from>_<to>.<ext>".
func Filename(table *Table, from, to string, e Exporter) string {
	return fmt.Sprintf("%s_%s_%s.%s", table.Name, from, to, e.Extension())
}
