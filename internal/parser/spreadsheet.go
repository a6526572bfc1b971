package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/xuri/excelize/v2"
)

// readRows returns the first sheet of a workbook, or the records of a
// delimited text file that was declared as a spreadsheet.
func readRows(f File) ([][]string, error) {
	switch {
	case detectedAs(f.Data, "application/zip"):
		return readWorkbook(f)
	case detectedAs(f.Data, "application/x-ole-storage"):
		return nil, parseErr(f, "", apperr.ReasonUnreadable, "legacy binary .xls workbooks are not supported, save the statement as .xlsx or .csv")
	case detectedAs(f.Data, MediaText):
		r := csv.NewReader(bytes.NewReader(f.Data))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, &apperr.ParseError{File: f.Name, Reason: apperr.ReasonUnreadable, Msg: "read delimited rows", Err: err}
		}
		return rows, nil
	default:
		return nil, parseErr(f, "", apperr.ReasonUnreadable, "content is not a workbook")
	}
}

func readWorkbook(f File) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
	if err != nil {
		return nil, &apperr.ParseError{File: f.Name, Reason: apperr.ReasonUnreadable, Msg: "open workbook", Err: err}
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseErr(f, "", apperr.ReasonUnreadable, "workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, &apperr.ParseError{File: f.Name, Reason: apperr.ReasonUnreadable, Msg: fmt.Sprintf("read sheet %q", sheets[0]), Err: err}
	}
	return rows, nil
}

// trimLeading drops the blank cells some exports pad rows with, so that
// column indexes are relative to the first populated cell.
func trimLeading(row []string) []string {
	i := 0
	for i < len(row) && strings.TrimSpace(row[i]) == "" {
		i++
	}
	return row[i:]
}

// hasCells reports whether row contains every one of names as a cell.
func hasCells(row []string, names ...string) bool {
	for _, name := range names {
		found := false
		for _, cell := range row {
			if strings.TrimSpace(cell) == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func rowText(row []string) string {
	return strings.Join(row, ",")
}
