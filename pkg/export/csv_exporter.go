package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// utf8BOM makes spreadsheet programs open the file as UTF-8, so accented
// names and headers ("Série") survive a double click.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders a dataset as comma separated text.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds an exporter that prefixes the UTF-8 byte order mark.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{bom: true}
}

// Render writes the header row followed by one record per row.
func (e *CSVExporter) Render(data Dataset, _ string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	var buf bytes.Buffer
	if e.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	for _, record := range data.Records() {
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
