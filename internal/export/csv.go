package export

import (
	"encoding/csv"
	"io"
)

// CSVExporter writes a header row followed by the data rows.
type CSVExporter struct{}

func (e *CSVExporter) Export(table *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (e *CSVExporter) Extension() string {
	return "csv"
}

func (e *CSVExporter) ContentType() string {
	return "text/csv; charset=utf-8"
}
