package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	"github.com/noah-isme/sma-qr-attendance/pkg/spreadsheet"
)

// AttendanceHeader is the first row of the attendance sheet.
var AttendanceHeader = []string{"Data e Hora", "Nome", "Série", "Curso", "Número da Chamada"}

// AttendanceTimeLayout formats the scan timestamp column in local time.
const AttendanceTimeLayout = "2006-01-02 15:04:05"

// AttendanceFileRepository appends presence rows to a spreadsheet file. The
// file is created with AttendanceHeader on first write.
type AttendanceFileRepository struct {
	path string
}

// NewAttendanceFileRepository validates the extension and returns the sink.
func NewAttendanceFileRepository(path string) (*AttendanceFileRepository, error) {
	if _, err := spreadsheet.KindOf(path); err != nil {
		return nil, fmt.Errorf("attendance sink: %w", err)
	}
	return &AttendanceFileRepository{path: path}, nil
}

// Append writes one row for the event.
func (r *AttendanceFileRepository) Append(ctx context.Context, event models.PresenceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := []string{
		event.Timestamp.Local().Format(AttendanceTimeLayout),
		event.Name,
		event.Grade,
		event.Track,
		event.RollNumber,
	}
	if err := spreadsheet.AppendRow(r.path, AttendanceHeader, row); err != nil {
		return fmt.Errorf("append attendance row to %s: %w", r.path, err)
	}
	return nil
}

// Rows reads the sheet back, header first. A sheet that was never written
// yields an error matching os.ErrNotExist.
func (r *AttendanceFileRepository) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.path); err != nil {
		return nil, err
	}
	return spreadsheet.ReadRows(r.path)
}
