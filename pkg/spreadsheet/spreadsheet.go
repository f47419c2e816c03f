// Package spreadsheet reads and appends the tabular files exchanged with the
// school office: .xlsx workbooks (active sheet) and plain .csv files.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Kind identifies a supported file type.
type Kind string

const (
	KindXLSX Kind = "xlsx"
	KindCSV  Kind = "csv"
)

// KindOf infers the file type from its extension.
func KindOf(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	case ".csv":
		return KindCSV, nil
	default:
		return "", fmt.Errorf("unsupported spreadsheet extension %q", filepath.Ext(path))
	}
}

// ReadRows returns every row of the file, header included. Rows may be
// ragged: trailing empty cells are not materialised.
func ReadRows(path string) ([][]string, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindCSV:
		return readCSV(path)
	default:
		return readXLSX(path)
	}
}

// AppendRow appends one row, creating the file with header first if absent.
func AppendRow(path string, header, row []string) error {
	kind, err := KindOf(path)
	if err != nil {
		return err
	}
	switch kind {
	case KindCSV:
		return appendCSV(path, header, row)
	default:
		return appendXLSX(path, header, row)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	// Files saved by spreadsheet programs often start with a byte order mark.
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func appendXLSX(path string, header, row []string) error {
	var f *excelize.File
	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		created = true
	} else {
		opened, err := excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open workbook %s: %w", path, err)
		}
		f = opened
	}
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	next := 1
	if created {
		if err := setRow(f, sheet, next, header); err != nil {
			return err
		}
		next++
	} else {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
		}
		next = len(rows) + 1
	}
	if err := setRow(f, sheet, next, row); err != nil {
		return err
	}

	if created {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("prepare workbook directory: %w", err)
		}
		return f.SaveAs(path)
	}
	return f.Save()
}

func setRow(f *excelize.File, sheet string, index int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, index)
	if err != nil {
		return fmt.Errorf("xlsx cell name: %w", err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write xlsx row %d: %w", index, err)
	}
	return nil
}

func appendCSV(path string, header, row []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare csv directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv %s: %w", path, err)
	}
	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
