// Package spreadsheet imports class rosters from .xlsx/.csv files and exports classrooms to .xlsx.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/lophoc/core"
)

var ErrUnsupportedFormat = errors.New("only .xlsx or .csv files are supported")

var (
	nameHeaders   = []string{"Tên", "Họ và tên", "Ho va ten", "Name", "ten", "name"}
	pointsHeaders = []string{"Điểm", "Diem", "Points", "Score", "diem", "points"}
)

// Row is a roster line read from a spreadsheet.
type Row struct {
	Line     int // 1-based line in the file; the header is line 1
	Position int // 1-based among the non-blank data rows, rejected ones included
	Name     string
	Points   int
}

type record struct {
	line  int
	cells map[string]string // header -> value
}

// ReadRows reads the roster in r, an .xlsx or .csv file judged by filename.
// Blank lines are skipped; lines without a student name are reported in rowErrs.
func ReadRows(filename string, r io.Reader) (rows []Row, rowErrs []string, err error) {
	var records []record
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, nil, core.NewValidationError(ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, nil, core.NewValidationError(errors.Wrap(err, "reading file"))
	}

	rowErrs = make([]string, 0)
	for i, rec := range records {
		name := lookup(rec.cells, nameHeaders)
		if name == "" {
			rowErrs = append(rowErrs, "row "+strconv.Itoa(rec.line)+": student name not found")
			continue
		}
		rows = append(rows, Row{
			Line:     rec.line,
			Position: i + 1,
			Name:     name,
			Points:   parsePoints(lookup(rec.cells, pointsHeaders)),
		})
	}
	return rows, rowErrs, nil
}

// lookup returns the first non-empty value among headers.
func lookup(cells map[string]string, headers []string) string {
	for _, h := range headers {
		if v := strings.TrimSpace(cells[h]); v != "" {
			return v
		}
	}
	return ""
}

// parsePoints truncates decimals; unreadable and negative values count as 0.
func parsePoints(s string) int {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

// toRecords maps each data row to the header row. lines holds the file line of each table row;
// when nil, rows are numbered from 1 in order.
func toRecords(table [][]string, lines []int) []record {
	if len(table) == 0 {
		return nil
	}
	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]record, 0, len(table)-1)
	for i, cells := range table[1:] {
		line := i + 2
		if lines != nil {
			line = lines[i+1]
		}
		rec := record{line: line, cells: make(map[string]string, len(headers))}
		blank := true
		for j, v := range cells {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			rec.cells[headers[j]] = v
			if strings.TrimSpace(v) != "" {
				blank = false
			}
		}
		if !blank {
			records = append(records, rec)
		}
	}
	return records
}

func readXLSX(r io.Reader) ([]record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	table, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, err
	}
	return toRecords(table, nil), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(r io.Reader) ([]record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	var (
		table [][]string
		lines []int
	)
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		table = append(table, fields)
		lines = append(lines, line)
	}
	return toRecords(table, lines), nil
}
