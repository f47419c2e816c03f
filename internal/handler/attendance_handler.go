package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-qr-attendance/internal/dto"
	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
	"github.com/noah-isme/sma-qr-attendance/pkg/response"
)

type attendanceService interface {
	HandlePayload(ctx context.Context, raw string) (*models.PresenceEvent, error)
	Snapshot() (*models.AttendanceSnapshot, error)
	Finish(ctx context.Context) (*models.FinishResult, error)
	LatestReport(ctx context.Context) (*models.AbsenceReport, error)
}

type rosterChecker interface {
	InRoster(name string) bool
}

// AttendanceHandler exposes scanning and the absence action.
type AttendanceHandler struct {
	sessions attendanceService
	roster   rosterChecker
}

// NewAttendanceHandler constructs the handler. roster may be nil.
func NewAttendanceHandler(sessions attendanceService, roster rosterChecker) *AttendanceHandler {
	return &AttendanceHandler{sessions: sessions, roster: roster}
}

// Scan godoc
// @Summary Submit a decoded QR payload
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ScanRequest true "Raw QR text"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /scans [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}

	event, err := h.sessions.HandlePayload(c.Request.Context(), req.Payload)
	if err != nil && (event == nil || !errors.Is(err, appErrors.ErrSinkWrite)) {
		response.Error(c, err)
		return
	}

	res := dto.ScanResponse{Event: *event, Duplicate: event.Duplicate}
	if h.roster != nil {
		res.InRoster = h.roster.InRoster(event.Name)
	}
	if err != nil {
		// Presence is recorded; only the sheet row is missing.
		response.Accepted(c, res, err.Error())
		return
	}
	response.Created(c, res)
}

// Attendance godoc
// @Summary Current session state
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) Attendance(c *gin.Context) {
	snapshot, err := h.sessions.Snapshot()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot)
}

// GenerateAbsences godoc
// @Summary Reconcile, export and upload the absence list
// @Tags Absences
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /absences [post]
func (h *AttendanceHandler) GenerateAbsences(c *gin.Context) {
	result, err := h.sessions.Finish(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.FinishResponse{FinishResult: *result, AbsentCount: len(result.Report.Absent)})
}

// LatestAbsences godoc
// @Summary Latest absence report
// @Tags Absences
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /absences/latest [get]
func (h *AttendanceHandler) LatestAbsences(c *gin.Context) {
	report, err := h.sessions.LatestReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}
