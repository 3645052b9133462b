// Package export renders tabular data as CSV or PDF documents.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Dataset is an ordered set of columns and rows keyed by column header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOption tweaks CSVExporter output.
type CSVOption func(*CSVExporter)

// WithBOM prefixes output with a UTF-8 byte order mark so spreadsheet apps
// detect the encoding of accented instructor and room names.
func WithBOM() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// WithDelimiter sets the field separator, e.g. ';' for locales using decimal commas.
func WithDelimiter(r rune) CSVOption {
	return func(e *CSVExporter) { e.comma = r }
}

// CSVExporter renders a Dataset as CSV. Cells that a spreadsheet would
// evaluate as formulas are prefixed with a quote.
type CSVExporter struct {
	bom   bool
	comma rune
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{comma: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render returns the CSV bytes: one header line, then one line per row in order.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	var buf bytes.Buffer
	if e.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	w.Comma = e.comma

	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = neutralize(row[header])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralize(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
