package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
)

type rosterRowsStub struct {
	rows [][]string
	err  error
}

func (s rosterRowsStub) Rows(context.Context) ([][]string, error) { return s.rows, s.err }

type memorySink struct {
	mu     sync.Mutex
	events []models.PresenceEvent
	err    error
}

func (s *memorySink) Append(_ context.Context, event models.PresenceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (n *recordingNotifier) NotifyError(title string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, title)
}

func (n *recordingNotifier) NotifyInfo(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, title)
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

type exporterStub struct {
	reports []models.AbsenceReport
	err     error
}

func (e *exporterStub) Export(_ context.Context, report models.AbsenceReport) (*models.ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.reports = append(e.reports, report)
	return &models.ExportResult{RelativePath: "faltas.xlsx", LocalPath: "/tmp/faltas.xlsx", Format: "xlsx"}, nil
}

type uploaderStub struct {
	mu     sync.Mutex
	calls  []string
	err    error
	failN  int
	remote string
}

func (u *uploaderStub) Upload(_ context.Context, filePath, displayName string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, filePath+"|"+displayName)
	if u.failN > 0 {
		u.failN--
		return "", errors.New("drive unavailable")
	}
	if u.err != nil {
		return "", u.err
	}
	return u.remote, nil
}

func (u *uploaderStub) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

var fixedNow = time.Date(2024, 3, 4, 7, 30, 0, 0, time.UTC)

func rosterRows() [][]string {
	return [][]string{
		{"Nome", "Série", "Curso", "Número da Chamada"},
		{"John Smith", "1A", "Informatics", "12"},
		{"Mary Jones", "1A", "Informatics", "13"},
		{"", "1A", "Math", "03"},
	}
}
