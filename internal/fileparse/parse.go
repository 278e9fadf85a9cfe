// Package fileparse turns uploaded spreadsheet/CSV payloads into an
// in-memory table of strings. The first returned row is the header row.
package fileparse

import (
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFileType is returned for extensions outside the whitelist.
var ErrUnsupportedFileType = errors.New("unsupported file type")

const maxXLSRows = 65536

// Ext returns the lower-cased extension of an uploaded filename.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Supported reports whether the extension can be parsed.
func Supported(ext string) bool {
	switch ext {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

// Parse reads the payload into rows of cells. CSV files are read whole;
// Excel files are read from their first sheet.
func Parse(file io.ReadSeeker, ext string) ([][]string, error) {
	switch ext {
	case ".csv":
		r := csv.NewReader(file)
		r.FieldsPerRecord = -1
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenReader(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sheet := f.GetSheetName(0)
		return f.GetRows(sheet)
	case ".xls":
		wb, err := xls.OpenReader(file, "utf-8")
		if err != nil {
			return nil, err
		}
		return wb.ReadAllCells(maxXLSRows), nil
	}
	return nil, ErrUnsupportedFileType
}
