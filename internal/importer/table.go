package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMalformedInput is returned when the input cannot be read as an
// inventory spreadsheet at all. It is detected before Import writes anything.
var ErrMalformedInput = errors.New("malformed input")

// Table is a header row plus data rows. Every row has len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadTable reads the first sheet of an xlsx workbook or a csv file. The
// format is chosen by the file name extension.
func ReadTable(name string, r io.Reader) (Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return Table{}, fmt.Errorf("%w: unsupported file type %q (want .xlsx or .csv)", ErrMalformedInput, filepath.Ext(name))
	}
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return newTable(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %v", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // Excel writes a BOM

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func newTable(records [][]string) (Table, error) {
	if len(records) == 0 {
		return Table{}, fmt.Errorf("%w: no header row", ErrMalformedInput)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	// excelize drops trailing empty cells, so widths vary per row
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return Table{}, fmt.Errorf("%w: no header row", ErrMalformedInput)
	}

	t := Table{Headers: headers, Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
