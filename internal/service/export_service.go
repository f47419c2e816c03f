package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
	"github.com/noah-isme/sma-qr-attendance/pkg/export"
	"github.com/noah-isme/sma-qr-attendance/pkg/storage"
)

// AbsenceHeader is the column layout of the absence export.
var AbsenceHeader = []string{"Nome", "Série", "Curso", "Número da Chamada"}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
	Path(filename string) string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	FileName  string
	Format    export.Format
	Retention time.Duration
}

// ExportService renders absence reports and stores them for download and upload.
type ExportService struct {
	storage  fileStorage
	signer   *storage.DownloadSigner
	renderer export.Renderer
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService. renderer may be nil to use the
// stock renderer for cfg.Format.
func NewExportService(store fileStorage, signer *storage.DownloadSigner, cfg ExportConfig, logger *zap.Logger, renderer export.Renderer) (*ExportService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Format == "" {
		cfg.Format = export.FormatXLSX
	}
	if cfg.FileName == "" {
		cfg.FileName = "faltas"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if renderer == nil {
		r, err := export.RendererFor(cfg.Format)
		if err != nil {
			return nil, err
		}
		renderer = r
	}
	return &ExportService{storage: store, signer: signer, renderer: renderer, logger: logger, cfg: cfg, now: time.Now}, nil
}

// Format returns the configured output format.
func (s *ExportService) Format() export.Format {
	return s.cfg.Format
}

// Export renders the report, stores it and signs a download token.
func (s *ExportService) Export(ctx context.Context, report models.AbsenceReport) (*models.ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := s.render(report)
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(report)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrExport, err, "")
	}

	result := &models.ExportResult{
		RelativePath: relPath,
		LocalPath:    s.storage.Path(relPath),
		Format:       string(s.cfg.Format),
	}
	if s.signer != nil {
		token, grant, err := s.signer.Issue(report.SessionID, relPath)
		if err != nil {
			return nil, appErrors.WrapAs(appErrors.ErrExport, err, "failed to sign export download")
		}
		prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
		if prefix == "" {
			prefix = "/api/v1"
		}
		result.Token = token
		result.URL = fmt.Sprintf("%s/exports/%s", prefix, token)
		result.ExpiresAt = grant.ExpiresAt
	}

	s.logger.Info("absence list exported",
		zap.String("session_id", report.SessionID),
		zap.String("path", relPath),
		zap.Int("absent", len(report.Absent)),
	)
	return result, nil
}

// ExportTo renders the report straight to path, bypassing storage and tokens.
func (s *ExportService) ExportTo(report models.AbsenceReport, path string) error {
	payload, err := s.render(report)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return appErrors.WrapAs(appErrors.ErrExport, err, "")
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return appErrors.WrapAs(appErrors.ErrExport, err, "")
	}
	return nil
}

// ResolveToken validates a download token and returns the stored path.
func (s *ExportService) ResolveToken(token string) (string, error) {
	if s.signer == nil {
		return "", appErrors.ErrNotFound
	}
	grant, err := s.signer.Verify(token)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "download link expired")
	case err != nil:
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	return grant.Path, nil
}

// Open returns a handle to a stored export.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	return file, nil
}

// Cleanup removes exports older than ttl, or the configured retention.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.Retention
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) render(report models.AbsenceReport) ([]byte, error) {
	title := fmt.Sprintf("Lista de Faltas %s", report.GeneratedAt.Local().Format("02/01/2006 15:04"))
	payload, err := s.renderer.Render(AbsenceDataset(report), title)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrExport, err, "")
	}
	return payload, nil
}

func (s *ExportService) buildFilename(report models.AbsenceReport) string {
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = s.now()
	}
	return fmt.Sprintf("%s_%s.%s", s.cfg.FileName, generated.Local().Format("20060102_150405"), s.cfg.Format)
}

// AbsenceDataset lays out one row per absent student.
func AbsenceDataset(report models.AbsenceReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Absent))
	for _, student := range report.Absent {
		rows = append(rows, map[string]string{
			"Nome":              student.Name,
			"Série":             student.Grade,
			"Curso":             student.Track,
			"Número da Chamada": student.RollNumber,
		})
	}
	return export.Dataset{Headers: AbsenceHeader, Rows: rows}
}
