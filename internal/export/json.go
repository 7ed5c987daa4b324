package export

import (
	"encoding/json"
	"io"
)

// JSONExporter exports the table in JSON format (pretty-printed)
type JSONExporter struct{}

func (e *JSONExporter) Export(table *Table, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(table)
}

func (e *JSONExporter) Extension() string {
	return "json"
}

func (e *JSONExporter) ContentType() string {
	return "application/json"
}
