package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-qr-attendance/pkg/export"
	"github.com/noah-isme/sma-qr-attendance/pkg/response"
)

type exportStore interface {
	ResolveToken(token string) (string, error)
	Open(relPath string) (*os.File, error)
}

// ExportHandler serves stored absence exports by signed token.
type ExportHandler struct {
	exports exportStore
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportStore) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download an absence export
// @Tags Absences
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	relPath, err := h.exports.ResolveToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	name := filepath.Base(relPath)
	format := export.Format(filepath.Ext(name))
	if len(format) > 0 {
		format = format[1:]
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
