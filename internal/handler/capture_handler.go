package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	"github.com/noah-isme/sma-qr-attendance/pkg/response"
)

type captureController interface {
	Start(ctx context.Context) error
	Stop() bool
	Status() models.CaptureStatus
}

// CaptureHandler toggles the frame polling loop.
type CaptureHandler struct {
	capture captureController
	// base outlives the request so the loop keeps running after the response.
	base context.Context
}

// NewCaptureHandler constructs the handler. base is the server lifetime context.
func NewCaptureHandler(capture captureController, base context.Context) *CaptureHandler {
	if base == nil {
		base = context.Background()
	}
	return &CaptureHandler{capture: capture, base: base}
}

// Start godoc
// @Summary Start capture
// @Tags Capture
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /capture/start [post]
func (h *CaptureHandler) Start(c *gin.Context) {
	if err := h.capture.Start(h.base); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.capture.Status())
}

// Stop godoc
// @Summary Stop capture
// @Tags Capture
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /capture/stop [post]
func (h *CaptureHandler) Stop(c *gin.Context) {
	stopped := h.capture.Stop()
	response.JSON(c, http.StatusOK, h.capture.Status(), map[string]interface{}{"stopped": stopped})
}

// Status godoc
// @Summary Capture status
// @Tags Capture
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /capture [get]
func (h *CaptureHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.capture.Status())
}
