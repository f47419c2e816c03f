package attendance

import (
	"context"
	"sort"
	"strings"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

// RosterSource yields the raw rows of the enrolment table, header first.
// Columns are name, grade, track, roll number.
type RosterSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Roster is the read-only set of known students for a session.
type Roster struct {
	students map[string]models.StudentRecord
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{students: map[string]models.StudentRecord{}}
}

// LoadRoster reads the source once. Rows whose name is blank are skipped and a
// repeated name overwrites the earlier row. On failure the returned roster is
// empty (never nil) alongside an ErrRosterLoad error, so a session can still
// run degraded.
func LoadRoster(ctx context.Context, src RosterSource) (*Roster, error) {
	roster := NewRoster()
	rows, err := src.Rows(ctx)
	if err != nil {
		return roster, appErrors.WrapAs(appErrors.ErrRosterLoad, err, "")
	}
	if len(rows) == 0 {
		return roster, nil
	}
	for _, row := range rows[1:] {
		name := NormalizeName(cell(row, 0))
		if name == "" {
			continue
		}
		roster.students[name] = models.StudentRecord{
			Name:       name,
			Grade:      strings.TrimSpace(cell(row, 1)),
			Track:      strings.TrimSpace(cell(row, 2)),
			RollNumber: strings.TrimSpace(cell(row, 3)),
		}
	}
	return roster, nil
}

// cell tolerates ragged rows; spreadsheet readers drop trailing empty cells.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Lookup returns the record for a normalised name.
func (r *Roster) Lookup(name string) (models.StudentRecord, bool) {
	rec, ok := r.students[name]
	return rec, ok
}

// Names returns every key in lexical order.
func (r *Roster) Names() []string {
	names := make([]string, 0, len(r.students))
	for name := range r.students {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len is the number of distinct students.
func (r *Roster) Len() int {
	return len(r.students)
}
