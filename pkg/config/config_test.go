package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "alunos.xlsx", cfg.Roster.Path)
	assert.False(t, cfg.Roster.Required)
	assert.Equal(t, SinkDriverXLSX, cfg.Attendance.SinkDriver)
	assert.Equal(t, "presenca.xlsx", cfg.Attendance.SinkPath)
	assert.False(t, cfg.Attendance.SuppressDuplicateRows)
	assert.True(t, cfg.Payload.AcceptJSON)
	assert.Equal(t, 100*time.Millisecond, cfg.Capture.Interval)
	assert.Equal(t, "xlsx", cfg.Export.Format)
	assert.Equal(t, "faltas", cfg.Export.FileName)
	assert.Equal(t, "Lista de Faltas", cfg.Upload.DisplayName)
	assert.Equal(t, 0, cfg.Upload.Retries)
}

func TestOverridesFromEnvironment(t *testing.T) {
	t.Setenv("ATTENDANCE_SINK_DRIVER", " Postgres ")
	t.Setenv("ATTENDANCE_SUPPRESS_DUPLICATE_ROWS", "true")
	t.Setenv("CAPTURE_INTERVAL", "not-a-duration")
	t.Setenv("UPLOAD_RETRIES", "-4")
	t.Setenv("ALLOWED_ORIGINS", "http://a.local, ,http://b.local")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	require.Equal(t, SinkDriverPostgres, cfg.Attendance.SinkDriver)
	require.True(t, cfg.Attendance.SuppressDuplicateRows)
	require.Equal(t, 100*time.Millisecond, cfg.Capture.Interval)
	require.Equal(t, 0, cfg.Upload.Retries)
	require.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORS.AllowedOrigins)
}

func TestValidateRejectsPDFUpload(t *testing.T) {
	cfg := &Config{
		Export: ExportConfig{Format: "pdf"},
		Upload: UploadConfig{Enabled: true},
	}
	require.Error(t, cfg.Validate())

	cfg.Upload.Enabled = false
	require.NoError(t, cfg.Validate())

	cfg.Upload.Enabled = true
	cfg.Export.Format = "xlsx"
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsPDFUpload(t *testing.T) {
	t.Setenv("EXPORT_FORMAT", "PDF")
	t.Setenv("UPLOAD_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPORT_FORMAT")
}
