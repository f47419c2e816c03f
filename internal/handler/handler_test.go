package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type attendanceServiceStub struct {
	event    *models.PresenceEvent
	err      error
	snapshot *models.AttendanceSnapshot
	finish   *models.FinishResult
	latest   *models.AbsenceReport
	raws     []string
}

func (s *attendanceServiceStub) HandlePayload(_ context.Context, raw string) (*models.PresenceEvent, error) {
	s.raws = append(s.raws, raw)
	return s.event, s.err
}

func (s *attendanceServiceStub) Snapshot() (*models.AttendanceSnapshot, error) {
	if s.snapshot == nil {
		return nil, appErrors.ErrNotFound
	}
	return s.snapshot, nil
}

func (s *attendanceServiceStub) Finish(context.Context) (*models.FinishResult, error) {
	return s.finish, s.err
}

func (s *attendanceServiceStub) LatestReport(context.Context) (*models.AbsenceReport, error) {
	if s.latest == nil {
		return nil, appErrors.ErrNotFound
	}
	return s.latest, nil
}

type rosterSet map[string]bool

func (r rosterSet) InRoster(name string) bool { return r[name] }

func TestAttendanceHandlerScan(t *testing.T) {
	svc := &attendanceServiceStub{event: &models.PresenceEvent{Name: "JOHN SMITH", Grade: "1A"}}
	h := NewAttendanceHandler(svc, rosterSet{"JOHN SMITH": true})

	body, _ := json.Marshal(map[string]string{"payload": "Nome: John Smith\nSérie: 1A\nCurso: X\nNúmero: 1"})
	c, w := newGinContext(http.MethodPost, "/scans", body)
	h.Scan(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"Nome: John Smith\nSérie: 1A\nCurso: X\nNúmero: 1"}, svc.raws)
	assert.Contains(t, w.Body.String(), `"in_roster":true`)
}

func TestAttendanceHandlerScanRejected(t *testing.T) {
	svc := &attendanceServiceStub{err: appErrors.Clone(appErrors.ErrPayloadInsufficient, "insufficient data in qr code")}
	h := NewAttendanceHandler(svc, nil)

	body, _ := json.Marshal(map[string]string{"payload": "Nome: Ana"})
	c, w := newGinContext(http.MethodPost, "/scans", body)
	h.Scan(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_INSUFFICIENT_DATA")
}

func TestAttendanceHandlerScanMissingBody(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceStub{}, nil)
	c, w := newGinContext(http.MethodPost, "/scans", []byte(`{}`))
	h.Scan(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerScanSinkFailure(t *testing.T) {
	svc := &attendanceServiceStub{
		event: &models.PresenceEvent{Name: "ANA"},
		err:   appErrors.WrapAs(appErrors.ErrSinkWrite, os.ErrPermission, ""),
	}
	h := NewAttendanceHandler(svc, nil)

	body, _ := json.Marshal(map[string]string{"payload": "x"})
	c, w := newGinContext(http.MethodPost, "/scans", body)
	h.Scan(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	env := decodeEnvelope(t, w)
	assert.Contains(t, string(env["meta"]), "warning")
}

func TestAttendanceHandlerGenerateAbsences(t *testing.T) {
	svc := &attendanceServiceStub{finish: &models.FinishResult{
		Report: models.AbsenceReport{Absent: []models.StudentRecord{{Name: "MARY JONES"}}},
		Upload: models.UploadFailed,
		Error:  "upload failed",
	}}
	h := NewAttendanceHandler(svc, nil)

	c, w := newGinContext(http.MethodPost, "/absences", nil)
	h.GenerateAbsences(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"absent_count":1`)
	assert.Contains(t, w.Body.String(), `"upload_status":"FAILED"`)
}

func TestAttendanceHandlerSnapshotAndLatest(t *testing.T) {
	svc := &attendanceServiceStub{snapshot: &models.AttendanceSnapshot{SessionID: "s-1", Present: []string{"ANA"}}}
	h := NewAttendanceHandler(svc, nil)

	c, w := newGinContext(http.MethodGet, "/attendance", nil)
	h.Attendance(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"present":["ANA"]`)

	c, w = newGinContext(http.MethodGet, "/absences/latest", nil)
	h.LatestAbsences(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type tokenIssuerStub struct{}

func (tokenIssuerStub) IssueToken(_ context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	if req.Passphrase != "chamada" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.TokenResponse{AccessToken: "tok", ExpiresIn: 60}, nil
}

func TestAuthHandlerToken(t *testing.T) {
	h := NewAuthHandler(tokenIssuerStub{})

	c, w := newGinContext(http.MethodPost, "/auth/token", []byte(`{"passphrase":"chamada"}`))
	h.Token(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"tok"`)

	c, w = newGinContext(http.MethodPost, "/auth/token", []byte(`{"passphrase":"x"}`))
	h.Token(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/token", []byte(`not json`))
	h.Token(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type captureStub struct {
	active bool
}

func (s *captureStub) Start(context.Context) error {
	if s.active {
		return appErrors.ErrCaptureActive
	}
	s.active = true
	return nil
}

func (s *captureStub) Stop() bool {
	was := s.active
	s.active = false
	return was
}

func (s *captureStub) Status() models.CaptureStatus {
	return models.CaptureStatus{Active: s.active, Interval: "100ms"}
}

func TestCaptureHandlerToggle(t *testing.T) {
	h := NewCaptureHandler(&captureStub{}, context.Background())

	c, w := newGinContext(http.MethodPost, "/capture/start", nil)
	h.Start(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":true`)

	c, w = newGinContext(http.MethodPost, "/capture/start", nil)
	h.Start(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newGinContext(http.MethodPost, "/capture/stop", nil)
	h.Stop(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stopped":true`)

	c, w = newGinContext(http.MethodGet, "/capture", nil)
	h.Status(c)
	assert.Contains(t, w.Body.String(), `"active":false`)
}

type exportStoreStub struct {
	dir string
}

func (s exportStoreStub) ResolveToken(token string) (string, error) {
	if token != "valid" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	return "faltas_20240304_073000.csv", nil
}

func (s exportStoreStub) Open(relPath string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, relPath))
}

func TestExportHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faltas_20240304_073000.csv"), []byte("Nome\nANA\n"), 0o644))
	h := NewExportHandler(exportStoreStub{dir: dir})

	c, w := newGinContext(http.MethodGet, "/exports/valid", nil)
	c.Params = gin.Params{{Key: "token", Value: "valid"}}
	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Nome\nANA\n", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/exports/forged", nil)
	c.Params = gin.Params{{Key: "token", Value: "forged"}}
	h.Download(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsHandlerReadyWithoutSessions(t *testing.T) {
	h := NewMetricsHandler(nil, nil)
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newGinContext(http.MethodGet, "/health", nil)
	h.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
