package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-qr-attendance/internal/attendance"
	"github.com/noah-isme/sma-qr-attendance/internal/models"
	"github.com/noah-isme/sma-qr-attendance/internal/repository"
	"github.com/noah-isme/sma-qr-attendance/internal/service"
	"github.com/noah-isme/sma-qr-attendance/pkg/config"
	"github.com/noah-isme/sma-qr-attendance/pkg/database"
	"github.com/noah-isme/sma-qr-attendance/pkg/logger"
	"github.com/noah-isme/sma-qr-attendance/pkg/upload"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Roster     string
	Attendance string
	Session    string
	Out        string
	Upload     bool
}

// ReconcileSummary is the outcome of an offline run.
type ReconcileSummary struct {
	Roster   int                    `json:"roster_students"`
	Present  int                    `json:"present_students"`
	Absent   []models.StudentRecord `json:"absent"`
	Output   string                 `json:"output"`
	Upload   models.UploadStatus    `json:"upload"`
	UploadID string                 `json:"upload_id,omitempty"`
}

// NewReconcileCommand builds the absence list from files already on disk.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Produce the absence list from a roster and an attendance sheet",
		Long: `Loads the roster, replays the names recorded in an attendance sheet and writes
the students that were never scanned. With a postgres or sqlite sink the names
of one session are read from the database instead (--session). A missing
attendance sheet means nobody was scanned. An unreadable roster exits with code 1.`,
		Example: `  attendance-kiosk reconcile --roster alunos.xlsx --attendance presenca.xlsx
  attendance-kiosk reconcile --attendance presenca.csv --out faltas.csv --upload
  ATTENDANCE_SINK_DRIVER=sqlite attendance-kiosk reconcile --session 6f1c2a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return exitErr(ExitCommandError, fmt.Errorf("load config: %w", err))
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return exitErr(ExitCommandError, fmt.Errorf("init logger: %w", err))
			}
			defer func() { _ = logr.Sync() }()
			return runReconcile(cmd.Context(), cmd.OutOrStdout(), cfg, logr, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Roster, "roster", "", "roster spreadsheet (defaults to ROSTER_PATH)")
	cmd.Flags().StringVar(&opts.Attendance, "attendance", "", "attendance sheet (defaults to ATTENDANCE_SINK_PATH)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to read from a postgres or sqlite sink")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the absence list here instead of EXPORT_DIR")
	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "upload the absence list after writing it")
	return cmd
}

func runReconcile(ctx context.Context, w io.Writer, cfg *config.Config, logr *zap.Logger, opts *ReconcileOptions) error {
	rosterPath := firstNonEmpty(opts.Roster, cfg.Roster.Path)

	exports, err := newExportService(cfg, logr)
	if err != nil {
		return err
	}
	if opts.Upload {
		ext := "." + string(exports.Format())
		if opts.Out != "" {
			ext = filepath.Ext(opts.Out)
		}
		if !upload.CanConvert(ext) {
			return exitErr(ExitCommandError, fmt.Errorf("--upload needs an xlsx or csv absence list, got %q", ext))
		}
	}

	notifier := service.NewLogNotifier(logr)
	sessions := service.NewSessionService(
		repository.NewRosterFileRepository(rosterPath),
		nil, nil, nil, nil, nil,
		notifier, nil,
		service.SessionConfig{RosterRequired: true},
		logr,
	)
	session, err := sessions.NewSession(ctx, nil)
	if err != nil {
		return exitErr(ExitFailure, err)
	}

	present, err := recordedNames(ctx, cfg, logr, opts)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(present))
	for name := range present {
		names = append(names, name)
	}
	sort.Strings(names)
	now := time.Now()
	for _, name := range names {
		if _, err := session.Ledger.RecordPresence(ctx, models.Identity{Name: name}, now); err != nil {
			return exitErr(ExitFailure, err)
		}
	}

	result, err := sessions.FinishSession(ctx, session)
	if err != nil {
		return exitErr(ExitFailure, err)
	}
	report := result.Report

	summary := ReconcileSummary{
		Roster:  report.RosterSize,
		Present: report.PresentCount,
		Absent:  report.Absent,
		Upload:  models.UploadSkipped,
	}
	exported := &models.ExportResult{Format: string(exports.Format())}
	if opts.Out != "" {
		if err := exports.ExportTo(report, opts.Out); err != nil {
			return exitErr(ExitFailure, err)
		}
		exported.LocalPath = opts.Out
	} else {
		exported, err = exports.Export(ctx, report)
		if err != nil {
			return exitErr(ExitFailure, err)
		}
	}
	summary.Output = exported.LocalPath

	if opts.Upload {
		drive, err := upload.NewDriveUploader(ctx, cfg.Upload.CredentialsFile)
		if err != nil {
			return exitErr(ExitFailure, fmt.Errorf("init uploader: %w", err))
		}
		uploads := service.NewUploadService(drive, service.UploadConfig{DisplayName: cfg.Upload.DisplayName}, notifier, nil, logr)
		summary.Upload, summary.UploadID, err = uploads.Publish(ctx, exported)
		if err != nil {
			_ = printSummary(w, opts.Format, summary)
			return exitErr(ExitFailure, err)
		}
	}
	return printSummary(w, opts.Format, summary)
}

// recordedNames returns the names scanned so far. An explicit --attendance
// sheet wins; otherwise the configured sink driver decides where to look.
func recordedNames(ctx context.Context, cfg *config.Config, logr *zap.Logger, opts *ReconcileOptions) (attendance.NameSet, error) {
	sqlSink := cfg.Attendance.SinkDriver == config.SinkDriverPostgres || cfg.Attendance.SinkDriver == config.SinkDriverSQLite
	if opts.Attendance == "" && sqlSink {
		if opts.Session == "" {
			return nil, exitErr(ExitCommandError, fmt.Errorf("--session is required with the %s sink driver", cfg.Attendance.SinkDriver))
		}
		db, err := database.Open(cfg)
		if err != nil {
			return nil, exitErr(ExitFailure, err)
		}
		defer db.Close() //nolint:errcheck
		events, err := repository.NewAttendanceRepository(db, nil).ListBySession(ctx, opts.Session)
		if err != nil {
			return nil, exitErr(ExitFailure, err)
		}
		if len(events) == 0 {
			logr.Warn("no attendance recorded for session", zap.String("session_id", opts.Session))
		}
		return attendance.PresentFromEvents(events), nil
	}
	if opts.Session != "" {
		return nil, exitErr(ExitCommandError, errors.New("--session applies to postgres and sqlite sinks only"))
	}

	path := opts.Attendance
	if path == "" {
		path = attendanceSheetPath(cfg)
	}
	sheet, err := repository.NewAttendanceFileRepository(path)
	if err != nil {
		return nil, exitErr(ExitCommandError, err)
	}
	rows, err := sheet.Rows(ctx)
	if errors.Is(err, os.ErrNotExist) {
		logr.Warn("attendance sheet not found, treating every student as absent", zap.String("path", path))
		return attendance.NameSet{}, nil
	}
	if err != nil {
		return nil, exitErr(ExitFailure, fmt.Errorf("read attendance sheet: %w", err))
	}
	return attendance.PresentFromRows(rows), nil
}

func printSummary(w io.Writer, format string, s ReconcileSummary) error {
	return printResult(w, format, s, func(w io.Writer) {
		fprintf(w, "roster: %d  present: %d  absent: %d\n", s.Roster, s.Present, len(s.Absent))
		for _, rec := range s.Absent {
			fprintf(w, "  %s\t%s\t%s\t%s\n", rec.Name, rec.Grade, rec.Track, rec.RollNumber)
		}
		fprintf(w, "written to %s\n", s.Output)
		if s.Upload != models.UploadSkipped {
			fprintf(w, "upload: %s %s\n", s.Upload, s.UploadID)
		}
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
