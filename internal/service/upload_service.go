package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
	"github.com/noah-isme/sma-qr-attendance/pkg/jobs"
)

const uploadJobType = "absence_upload"

// Uploader publishes a local file under a display name and returns the remote id.
type Uploader interface {
	Upload(ctx context.Context, filePath, displayName string) (string, error)
}

// UploadConfig configures publishing.
type UploadConfig struct {
	DisplayName string
	Async       bool
	Retries     int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

type uploadRequest struct {
	Path        string
	DisplayName string
}

// UploadService sends absence exports to the cloud collaborator, inline or on
// a background queue. A failure never removes the local export.
type UploadService struct {
	uploader Uploader
	queue    *jobs.Queue
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      UploadConfig
}

// NewUploadService constructs the service. A nil uploader disables publishing.
func NewUploadService(uploader Uploader, cfg UploadConfig, notifier Notifier, metrics *MetricsService, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = "Lista de Faltas"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	s := &UploadService{uploader: uploader, notifier: notifier, metrics: metrics, logger: logger, cfg: cfg}
	if uploader != nil && cfg.Async {
		s.queue = jobs.NewQueue(uploadJobType, s.handle, jobs.QueueConfig{
			Workers:    1,
			BufferSize: 8,
			MaxRetries: cfg.Retries,
			RetryDelay: cfg.RetryDelay,
			OnFailure:  s.onFailure,
			Logger:     logger,
		})
	}
	return s
}

// Enabled reports whether an uploader is wired.
func (s *UploadService) Enabled() bool {
	return s != nil && s.uploader != nil
}

// Start launches the background worker when running asynchronously.
func (s *UploadService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop waits for queued uploads until ctx expires. Uploads still waiting at
// that point are reported as failed; their local exports remain on disk.
func (s *UploadService) Stop(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	if n := s.queue.Pending(); n > 0 {
		s.logger.Info("waiting for queued uploads", zap.Int("pending", n))
	}
	return s.queue.Shutdown(ctx)
}

// Publish uploads the export. It returns the status, the remote id (sync) or
// job id (async), and an ErrUpload error when a synchronous upload failed.
func (s *UploadService) Publish(ctx context.Context, result *models.ExportResult) (models.UploadStatus, string, error) {
	if !s.Enabled() || result == nil {
		return models.UploadSkipped, "", nil
	}
	req := uploadRequest{Path: result.LocalPath, DisplayName: s.cfg.DisplayName}

	if s.queue != nil {
		job := jobs.Job{ID: uuid.NewString(), Type: uploadJobType, Payload: req}
		if err := s.queue.Enqueue(job); err != nil {
			s.metrics.RecordUpload("failed")
			wrapped := appErrors.WrapAs(appErrors.ErrUpload, err, "could not queue upload")
			s.notifier.NotifyError("Upload failed", wrapped)
			return models.UploadFailed, "", wrapped
		}
		return models.UploadQueued, job.ID, nil
	}

	id, err := s.upload(ctx, req)
	if err != nil {
		s.metrics.RecordUpload("failed")
		s.notifier.NotifyError("Upload failed", err)
		return models.UploadFailed, "", err
	}
	return models.UploadDone, id, nil
}

func (s *UploadService) upload(ctx context.Context, req uploadRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	id, err := s.uploader.Upload(ctx, req.Path, req.DisplayName)
	if err != nil {
		return "", appErrors.WrapAs(appErrors.ErrUpload, err, "")
	}
	s.metrics.RecordUpload("uploaded")
	s.notifier.NotifyInfo("Absence list uploaded", fmt.Sprintf("%s (id %s)", req.DisplayName, id))
	return id, nil
}

func (s *UploadService) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(uploadRequest)
	if !ok {
		return fmt.Errorf("unexpected upload payload %T", job.Payload)
	}
	_, err := s.upload(ctx, req)
	return err
}

func (s *UploadService) onFailure(job jobs.Job, err error) {
	s.metrics.RecordUpload("failed")
	s.notifier.NotifyError("Upload failed", err)
	s.logger.Warn("absence upload abandoned", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
}
