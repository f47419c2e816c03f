package dto

import "github.com/noah-isme/sma-qr-attendance/internal/models"

// ScanRequest submits a QR payload decoded by an external scanner.
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// ScanResponse reports the recorded presence.
type ScanResponse struct {
	Event     models.PresenceEvent `json:"event"`
	InRoster  bool                 `json:"in_roster"`
	Duplicate bool                 `json:"duplicate"`
}

// FinishResponse wraps the terminal action outcome.
type FinishResponse struct {
	models.FinishResult
	AbsentCount int `json:"absent_count"`
}
