package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-qr-attendance/internal/attendance"
	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
	"github.com/noah-isme/sma-qr-attendance/pkg/logger"
)

const latestReportKey = "reports:latest"

type absenceExporter interface {
	Export(ctx context.Context, report models.AbsenceReport) (*models.ExportResult, error)
}

type absencePublisher interface {
	Publish(ctx context.Context, result *models.ExportResult) (models.UploadStatus, string, error)
}

type payloadParser interface {
	Parse(raw string) (models.Identity, error)
}

// Session is the state of one attendance run: its roster and its ledger.
// Everything the controller does is expressed against a Session value.
type Session struct {
	ID        string
	StartedAt time.Time
	Roster    *attendance.Roster
	RosterErr error
	Ledger    *attendance.Ledger
}

// SessionConfig tunes session behaviour.
type SessionConfig struct {
	RosterRequired        bool
	SuppressDuplicateRows bool
	ReportTTL             time.Duration
}

// SessionService drives scans and the terminal absence action.
type SessionService struct {
	roster   attendance.RosterSource
	sink     attendance.Sink
	parser   payloadParser
	exporter absenceExporter
	uploads  absencePublisher
	cache    *CacheService
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      SessionConfig
	now      func() time.Time

	mu      sync.RWMutex
	current *Session
	latest  *models.AbsenceReport
}

// NewSessionService wires the controller. exporter, uploads, cache and
// metrics may be nil.
func NewSessionService(
	roster attendance.RosterSource,
	sink attendance.Sink,
	parser payloadParser,
	exporter absenceExporter,
	uploads absencePublisher,
	cache *CacheService,
	notifier Notifier,
	metrics *MetricsService,
	cfg SessionConfig,
	log *zap.Logger,
) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	if parser == nil {
		parser = attendance.NewPayloadParser(false, nil)
	}
	return &SessionService{
		roster:   roster,
		sink:     sink,
		parser:   parser,
		exporter: exporter,
		uploads:  uploads,
		cache:    cache,
		notifier: notifier,
		metrics:  metrics,
		logger:   log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start loads the roster and opens a new session, replacing any current one.
// A roster failure degrades the session to an empty roster unless
// RosterRequired is set.
func (s *SessionService) Start(ctx context.Context) (*Session, error) {
	session, err := s.NewSession(ctx, s.sink)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
	return session, nil
}

// NewSession builds a session without making it current.
func (s *SessionService) NewSession(ctx context.Context, sink attendance.Sink) (*Session, error) {
	session := &Session{ID: uuid.NewString(), StartedAt: s.now()}
	log := logger.Session(s.logger, session.ID)

	roster := attendance.NewRoster()
	if s.roster != nil {
		loaded, err := attendance.LoadRoster(ctx, s.roster)
		roster = loaded
		if err != nil {
			session.RosterErr = err
			s.notifier.NotifyError("Roster load failed", err)
			if s.cfg.RosterRequired {
				return nil, err
			}
			log.Warn("continuing with an empty roster", zap.Error(err))
		}
	}
	session.Roster = roster
	session.Ledger = attendance.NewLedger(session.ID, sink, s.cfg.SuppressDuplicateRows)

	s.metrics.SetRosterSize(roster.Len())
	s.metrics.SetPresent(0)
	log.Info("session started", zap.Int("roster_students", roster.Len()))
	return session, nil
}

// Current returns the active session or nil.
func (s *SessionService) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// HandlePayload processes one decoded QR text against the current session.
func (s *SessionService) HandlePayload(ctx context.Context, raw string) (*models.PresenceEvent, error) {
	session := s.Current()
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no active session")
	}
	return s.Scan(ctx, session, raw)
}

// Scan parses raw and records presence in session. Parse failures leave the
// ledger untouched. Every failure is also sent to the notifier.
func (s *SessionService) Scan(ctx context.Context, session *Session, raw string) (*models.PresenceEvent, error) {
	identity, err := s.parser.Parse(raw)
	if err != nil {
		s.metrics.RecordScan(ScanRejected)
		logger.FromContext(ctx, logger.Session(s.logger, session.ID)).Debug("payload rejected", zap.Error(err))
		s.notifier.NotifyError("Invalid QR code", err)
		return nil, err
	}

	event, err := session.Ledger.RecordPresence(ctx, identity, s.now())
	if event.Duplicate {
		s.metrics.RecordScan(ScanDuplicate)
	} else {
		s.metrics.RecordScan(ScanAccepted)
	}
	s.metrics.SetPresent(len(session.Ledger.PresentNames()))
	if err != nil {
		s.metrics.RecordSinkFailure()
		s.notifier.NotifyError("Could not save attendance row", err)
		return &event, err
	}

	if _, known := session.Roster.Lookup(identity.Name); !known {
		logger.FromContext(ctx, logger.Session(s.logger, session.ID)).Debug("scanned name not in roster", zap.String("name", identity.Name))
	}
	s.notifier.NotifyInfo("Presence recorded", identity.Name)
	return &event, nil
}

// Snapshot describes the current session.
func (s *SessionService) Snapshot() (*models.AttendanceSnapshot, error) {
	session := s.Current()
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active session")
	}
	arrivals := session.Ledger.Arrivals()
	return &models.AttendanceSnapshot{
		SessionID:    session.ID,
		StartedAt:    session.StartedAt,
		RosterSize:   session.Roster.Len(),
		RosterLoaded: session.RosterErr == nil,
		Present:      arrivals,
		PresentCount: len(arrivals),
		Scans:        session.Ledger.Scans(),
	}, nil
}

// Finish runs the terminal action on the current session.
func (s *SessionService) Finish(ctx context.Context) (*models.FinishResult, error) {
	session := s.Current()
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no active session")
	}
	return s.FinishSession(ctx, session)
}

// FinishSession reconciles, exports and publishes. The session stays open so
// scanning can continue and the action can be repeated. An upload failure is
// reported in the result, not as an error: the local export remains.
func (s *SessionService) FinishSession(ctx context.Context, session *Session) (*models.FinishResult, error) {
	report := attendance.Reconcile(session.Roster, session.Ledger.PresentNames())
	report.SessionID = session.ID
	report.GeneratedAt = s.now()

	s.metrics.SetAbsent(len(report.Absent))
	s.storeLatest(ctx, report)

	result := &models.FinishResult{Report: report, Upload: models.UploadSkipped}
	if s.exporter == nil {
		return result, nil
	}
	exported, err := s.exporter.Export(ctx, report)
	if err != nil {
		s.notifier.NotifyError("Absence export failed", err)
		return result, err
	}
	result.Export = exported
	s.notifier.NotifyInfo("Absence list generated", exported.RelativePath)

	if s.uploads == nil {
		return result, nil
	}
	status, id, err := s.uploads.Publish(ctx, exported)
	result.Upload = status
	result.UploadID = id
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

// LatestReport returns the most recent absence report.
func (s *SessionService) LatestReport(ctx context.Context) (*models.AbsenceReport, error) {
	var cached models.AbsenceReport
	hit, err := s.cache.Get(ctx, latestReportKey, &cached)
	if err == nil && hit {
		return &cached, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no absence report generated yet")
	}
	report := *s.latest
	return &report, nil
}

func (s *SessionService) storeLatest(ctx context.Context, report models.AbsenceReport) {
	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()
	if err := s.cache.Set(ctx, latestReportKey, report, s.cfg.ReportTTL); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("latest report not cached", zap.Error(err))
	}
}

// InRoster reports whether name is a student of the current session.
func (s *SessionService) InRoster(name string) bool {
	session := s.Current()
	if session == nil {
		return false
	}
	_, ok := session.Roster.Lookup(name)
	return ok
}
