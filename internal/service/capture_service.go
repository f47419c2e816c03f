package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	"github.com/noah-isme/sma-qr-attendance/pkg/capture"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

type payloadHandler interface {
	HandlePayload(ctx context.Context, raw string) (*models.PresenceEvent, error)
}

// CaptureService polls a frame source at a fixed cadence and feeds decoded
// payloads to the session. The timer is re-armed only after an iteration
// completes, so two iterations never overlap.
type CaptureService struct {
	source   capture.Source
	decoder  capture.Decoder
	handler  payloadHandler
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	frames   atomic.Int64
	payloads atomic.Int64
}

// NewCaptureService constructs the capture loop.
func NewCaptureService(source capture.Source, decoder capture.Decoder, handler payloadHandler, interval time.Duration, logger *zap.Logger) *CaptureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if decoder == nil {
		decoder = capture.NewQRDecoder()
	}
	return &CaptureService{source: source, decoder: decoder, handler: handler, interval: interval, logger: logger.Named("capture")}
}

// Start begins polling until Stop or ctx cancellation.
func (s *CaptureService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return appErrors.ErrCaptureActive
	}
	if s.source == nil {
		return appErrors.Clone(appErrors.ErrConflict, "no frame source configured")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(loopCtx, s.done)
	s.logger.Info("capture started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the pending re-arm and waits for the loop to exit. It reports
// whether a loop was running.
func (s *CaptureService) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("capture stopped")
	return true
}

// Active reports whether the loop is running.
func (s *CaptureService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status describes the loop.
func (s *CaptureService) Status() models.CaptureStatus {
	return models.CaptureStatus{
		Active:   s.Active(),
		Interval: s.interval.String(),
		Frames:   s.frames.Load(),
		Payloads: s.payloads.Load(),
	}
}

func (s *CaptureService) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

// tick runs one iteration. Errors are logged; they never end the loop.
func (s *CaptureService) tick(ctx context.Context) {
	frame, ok, err := s.source.NextFrame(ctx)
	if err != nil {
		s.logger.Warn("frame acquisition failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	s.frames.Add(1)

	payloads, err := s.decoder.Decode(frame)
	if errors.Is(err, capture.ErrDamagedCode) {
		s.logger.Debug("unreadable qr code in frame", zap.String("frame", frame.Source), zap.Error(err))
		return
	}
	if err != nil {
		s.logger.Warn("frame decode failed", zap.String("frame", frame.Source), zap.Error(err))
		return
	}
	if len(payloads) == 0 {
		s.logger.Debug("no qr code in frame", zap.String("frame", frame.Source))
		return
	}
	for _, raw := range payloads {
		s.payloads.Add(1)
		if _, err := s.handler.HandlePayload(ctx, raw); err != nil {
			s.logger.Debug("payload not recorded", zap.String("frame", frame.Source), zap.Error(err))
		}
	}
}
