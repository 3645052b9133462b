// Package sheet reads tabular uploads (.xlsx or .csv) into header-keyed rows.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a supported upload encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for file names other than .xlsx and .csv.
var ErrUnsupportedFormat = errors.New("sheet: unsupported file format")

// MissingColumnsError lists required headers absent from the first row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Row is one data row keyed by header. Number is the 1-based spreadsheet row,
// counting the header as row 1.
type Row struct {
	Number int
	Values map[string]string
}

// Get returns the trimmed cell for header.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.Values[header])
}

// Table is a parsed upload.
type Table struct {
	Headers []string
	Rows    []Row
}

// DetectFormat maps a file name to its format.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Read parses r and checks that every required header is present. Header matching
// trims whitespace and ignores case; values are keyed by the required spelling.
// Fully blank rows are skipped.
func Read(r io.Reader, format Format, required []string) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	case FormatCSV:
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &MissingColumnsError{Columns: required}
	}

	index := make(map[string]int, len(records[0]))
	headers := make([]string, 0, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		headers = append(headers, h)
		index[strings.ToLower(h)] = i
	}
	canonical := make(map[int]string, len(required))
	var missing []string
	for _, name := range required {
		i, ok := index[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		canonical[i] = name
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	table := &Table{Headers: headers}
	for n, record := range records[1:] {
		if blank(record) {
			continue
		}
		values := make(map[string]string, len(headers))
		for i, cell := range record {
			if i >= len(headers) {
				break
			}
			key := headers[i]
			if name, ok := canonical[i]; ok {
				key = name
			}
			values[key] = cell
		}
		table.Rows = append(table.Rows, Row{Number: n + 2, Values: values})
	}
	return table, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
