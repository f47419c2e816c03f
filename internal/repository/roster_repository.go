package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-qr-attendance/pkg/spreadsheet"
)

// RosterFileRepository reads the enrolment table from an .xlsx or .csv file.
type RosterFileRepository struct {
	path string
}

// NewRosterFileRepository constructs a roster source for path.
func NewRosterFileRepository(path string) *RosterFileRepository {
	return &RosterFileRepository{path: path}
}

// Rows returns the raw rows, header first.
func (r *RosterFileRepository) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := spreadsheet.ReadRows(r.path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", r.path, err)
	}
	return rows, nil
}

// Path returns the configured roster location.
func (r *RosterFileRepository) Path() string {
	return r.path
}
