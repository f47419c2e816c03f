package models

import "time"

// PresenceEvent is emitted for every accepted scan. Duplicate marks a re-scan
// of a name that was already present.
type PresenceEvent struct {
	SessionID  string    `db:"session_id" json:"session_id"`
	Timestamp  time.Time `db:"scanned_at" json:"timestamp"`
	Name       string    `db:"name" json:"name"`
	Grade      string    `db:"grade" json:"grade"`
	Track      string    `db:"track" json:"track"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	Duplicate  bool      `db:"duplicate" json:"duplicate"`
}

// AbsenceReport lists roster students missing from the present set.
// Entry order carries no meaning.
type AbsenceReport struct {
	SessionID    string          `json:"session_id"`
	GeneratedAt  time.Time       `json:"generated_at"`
	RosterSize   int             `json:"roster_size"`
	PresentCount int             `json:"present_count"`
	Absent       []StudentRecord `json:"absent"`
}

// AttendanceSnapshot is the live view of a session.
type AttendanceSnapshot struct {
	SessionID    string    `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	RosterSize   int       `json:"roster_size"`
	RosterLoaded bool      `json:"roster_loaded"`
	Present      []string  `json:"present"`
	PresentCount int       `json:"present_count"`
	Scans        int       `json:"scans"`
}

// ExportResult describes a stored absence export.
type ExportResult struct {
	RelativePath string    `json:"relative_path"`
	LocalPath    string    `json:"-"`
	Format       string    `json:"format"`
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UploadStatus captures the outcome of publishing an export.
type UploadStatus string

const (
	UploadSkipped UploadStatus = "SKIPPED"
	UploadQueued  UploadStatus = "QUEUED"
	UploadDone    UploadStatus = "UPLOADED"
	UploadFailed  UploadStatus = "FAILED"
)

// FinishResult is returned by the terminal "generate absences" action.
type FinishResult struct {
	Report   AbsenceReport `json:"report"`
	Export   *ExportResult `json:"export,omitempty"`
	Upload   UploadStatus  `json:"upload_status"`
	UploadID string        `json:"upload_id,omitempty"`
	Error    string        `json:"upload_error,omitempty"`
}

// CaptureStatus reports whether the frame polling loop is running.
type CaptureStatus struct {
	Active   bool   `json:"active"`
	Interval string `json:"interval"`
	Frames   int64  `json:"frames"`
	Payloads int64  `json:"payloads"`
}
