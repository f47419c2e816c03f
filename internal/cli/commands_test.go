package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	"github.com/noah-isme/sma-qr-attendance/internal/repository"
	"github.com/noah-isme/sma-qr-attendance/internal/service"
	"github.com/noah-isme/sma-qr-attendance/pkg/config"
	"github.com/noah-isme/sma-qr-attendance/pkg/database"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		JWT:       config.JWTConfig{Secret: "test-secret", Expiration: time.Hour},
		Log:       config.LogConfig{Level: "error", Format: "json"},
		Roster:    config.RosterConfig{Path: filepath.Join(dir, "alunos.csv")},
		Attendance: config.AttendanceConfig{
			SinkDriver: config.SinkDriverCSV,
			SinkPath:   filepath.Join(dir, "presenca.csv"),
		},
		Capture: config.CaptureConfig{SpoolDir: filepath.Join(dir, "frames"), Interval: 10 * time.Millisecond},
		Export: config.ExportConfig{
			Dir:             filepath.Join(dir, "exports"),
			Format:          "csv",
			FileName:        "faltas",
			SignedURLSecret: "export-secret",
			SignedURLTTL:    time.Hour,
			Retention:       time.Hour,
		},
		Cache: config.ReportCacheConfig{TTL: time.Hour},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func executeRoot(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{LoadConfig: func() (*config.Config, error) { return cfg, nil }})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommandMintsScannerToken(t *testing.T) {
	cfg := testConfig(t)

	out, err := executeRoot(t, cfg, "", "--format", "json", "token", "--role", "scanner", "--subject", "gate-1")
	require.NoError(t, err)

	var got tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, string(models.RoleScanner), got.Role)

	auth := service.NewAuthService(nil, nil, service.AuthConfig{Secret: cfg.JWT.Secret})
	claims, err := auth.ValidateToken(got.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleScanner, claims.Role)
	assert.Equal(t, "gate-1", claims.Subject)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	_, err := executeRoot(t, testConfig(t), "", "token", "--role", "admin")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestHashPasswordReadsStdin(t *testing.T) {
	out, err := executeRoot(t, testConfig(t), "s3cret\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashPasswordRejectsEmptyInput(t *testing.T) {
	_, err := executeRoot(t, testConfig(t), "\n", "hash-password")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestReconcileWritesAbsenceList(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Roster.Path, "Nome,Série,Curso,Número\nJohn Smith,1A,Informatics,12\nMaria Souza,1A,Informatics,15\nPedro Lima,2B,Chemistry,03\n")
	writeFile(t, cfg.Attendance.SinkPath, "Data e Hora,Nome,Série,Curso,Número da Chamada\n2024-03-01 07:30:00,JOHN SMITH,1A,Informatics,12\n2024-03-01 07:31:00,JOHN SMITH,1A,Informatics,12\n2024-03-01 07:32:00,OUTSIDER,9Z,None,99\n")
	outPath := filepath.Join(t.TempDir(), "faltas.csv")

	out := &bytes.Buffer{}
	opts := &ReconcileOptions{RootOptions: &RootOptions{Format: "json"}, Out: outPath}
	require.NoError(t, runReconcile(context.Background(), out, cfg, zap.NewNop(), opts))

	var summary ReconcileSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 3, summary.Roster)
	assert.Equal(t, 2, summary.Present)
	require.Len(t, summary.Absent, 2)
	assert.Equal(t, "MARIA SOUZA", summary.Absent[0].Name)
	assert.Equal(t, "PEDRO LIMA", summary.Absent[1].Name)
	assert.Equal(t, models.UploadSkipped, summary.Upload)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "Nome,Série,Curso,Número da Chamada")
	assert.Contains(t, string(written), "PEDRO LIMA,2B,Chemistry,03")
	assert.NotContains(t, string(written), "JOHN SMITH")
}

func TestReconcileMissingRosterExitsWithFailure(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Attendance.SinkPath, "Data e Hora,Nome,Série,Curso,Número da Chamada\n")

	opts := &ReconcileOptions{RootOptions: &RootOptions{Format: "text"}}
	err := runReconcile(context.Background(), &bytes.Buffer{}, cfg, zap.NewNop(), opts)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestReconcileDefaultsToExportDir(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Roster.Path, "Nome\nAna\n")
	writeFile(t, cfg.Attendance.SinkPath, "Data e Hora,Nome\n")

	out := &bytes.Buffer{}
	opts := &ReconcileOptions{RootOptions: &RootOptions{Format: "text"}}
	require.NoError(t, runReconcile(context.Background(), out, cfg, zap.NewNop(), opts))

	assert.Contains(t, out.String(), "roster: 1  present: 0  absent: 1")
	assert.Contains(t, out.String(), "ANA")
	entries, err := os.ReadDir(cfg.Export.Dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestReconcileWithoutAttendanceSheetMarksEveryoneAbsent(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Roster.Path, "Nome\nAna\nBruno\n")

	out := &bytes.Buffer{}
	opts := &ReconcileOptions{RootOptions: &RootOptions{Format: "json"}, Out: filepath.Join(t.TempDir(), "faltas.csv")}
	require.NoError(t, runReconcile(context.Background(), out, cfg, zap.NewNop(), opts))

	var summary ReconcileSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 2, summary.Roster)
	assert.Zero(t, summary.Present)
	assert.Len(t, summary.Absent, 2)
}

func TestReconcileReadsSessionFromSQLiteSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Attendance.SinkDriver = config.SinkDriverSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "attendance.db")
	writeFile(t, cfg.Roster.Path, "Nome,Série,Curso,Número\nJohn Smith,1A,Informatics,12\nMaria Souza,1A,Informatics,15\nPedro Lima,2B,Chemistry,03\n")

	db, err := database.Open(cfg)
	require.NoError(t, err)
	repo := repository.NewAttendanceRepository(db, nil)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))
	now := time.Now()
	require.NoError(t, repo.Append(ctx, models.PresenceEvent{SessionID: "morning", Timestamp: now, Name: "JOHN SMITH"}))
	require.NoError(t, repo.Append(ctx, models.PresenceEvent{SessionID: "morning", Timestamp: now, Name: "JOHN SMITH", Duplicate: true}))
	require.NoError(t, repo.Append(ctx, models.PresenceEvent{SessionID: "afternoon", Timestamp: now, Name: "PEDRO LIMA"}))
	require.NoError(t, db.Close())

	out := &bytes.Buffer{}
	opts := &ReconcileOptions{
		RootOptions: &RootOptions{Format: "json"},
		Session:     "morning",
		Out:         filepath.Join(t.TempDir(), "faltas.csv"),
	}
	require.NoError(t, runReconcile(ctx, out, cfg, zap.NewNop(), opts))

	var summary ReconcileSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 1, summary.Present)
	require.Len(t, summary.Absent, 2)
	assert.Equal(t, "MARIA SOUZA", summary.Absent[0].Name)
	assert.Equal(t, "PEDRO LIMA", summary.Absent[1].Name)
}

func TestReconcileSQLSinkRequiresSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Attendance.SinkDriver = config.SinkDriverSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "attendance.db")
	writeFile(t, cfg.Roster.Path, "Nome\nAna\n")

	err := runReconcile(context.Background(), &bytes.Buffer{}, cfg, zap.NewNop(), &ReconcileOptions{RootOptions: &RootOptions{Format: "text"}})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestReconcileSessionFlagNeedsSQLSink(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Roster.Path, "Nome\nAna\n")

	opts := &ReconcileOptions{RootOptions: &RootOptions{Format: "text"}, Session: "morning"}
	err := runReconcile(context.Background(), &bytes.Buffer{}, cfg, zap.NewNop(), opts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestReconcileRefusesToUploadPDF(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.Format = "pdf"
	writeFile(t, cfg.Roster.Path, "Nome\nAna\n")

	opts := &ReconcileOptions{RootOptions: &RootOptions{Format: "text"}, Upload: true}
	err := runReconcile(context.Background(), &bytes.Buffer{}, cfg, zap.NewNop(), opts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	_, statErr := os.Stat(cfg.Export.Dir)
	if statErr == nil {
		entries, _ := os.ReadDir(cfg.Export.Dir)
		assert.Empty(t, entries)
	}
}
