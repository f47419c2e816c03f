package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
)

const attendanceSchema = `CREATE TABLE IF NOT EXISTS attendance_events (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    scanned_at TIMESTAMP NOT NULL,
    name TEXT NOT NULL,
    grade TEXT NOT NULL DEFAULT '',
    track TEXT NOT NULL DEFAULT '',
    roll_number TEXT NOT NULL DEFAULT '',
    duplicate BOOLEAN NOT NULL DEFAULT FALSE
)`

// QueryObserver receives timings for executed statements.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// AttendanceRepository stores presence rows in a SQL table. Queries are
// written with ? placeholders and rebound for the driver in use.
type AttendanceRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewAttendanceRepository constructs the SQL sink. observer may be nil.
func NewAttendanceRepository(db *sqlx.DB, observer QueryObserver) *AttendanceRepository {
	return &AttendanceRepository{db: db, observer: observer}
}

// EnsureSchema creates the attendance_events table when missing.
func (r *AttendanceRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, attendanceSchema); err != nil {
		return fmt.Errorf("create attendance_events: %w", err)
	}
	return nil
}

// Append inserts one row for the event.
func (r *AttendanceRepository) Append(ctx context.Context, event models.PresenceEvent) error {
	defer r.observe("attendance_append", time.Now())
	query := r.db.Rebind(`INSERT INTO attendance_events (id, session_id, scanned_at, name, grade, track, roll_number, duplicate)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), event.SessionID, event.Timestamp.UTC(), event.Name,
		event.Grade, event.Track, event.RollNumber, event.Duplicate,
	); err != nil {
		return fmt.Errorf("insert attendance event: %w", err)
	}
	return nil
}

// ListBySession returns the rows of one session in scan order.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.PresenceEvent, error) {
	defer r.observe("attendance_list", time.Now())
	query := r.db.Rebind(`SELECT session_id, scanned_at, name, grade, track, roll_number, duplicate
        FROM attendance_events WHERE session_id = ? ORDER BY scanned_at ASC`)
	var events []models.PresenceEvent
	if err := r.db.SelectContext(ctx, &events, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance events: %w", err)
	}
	return events, nil
}

func (r *AttendanceRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}
