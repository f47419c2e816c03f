package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-qr-attendance/api/swagger"
	"github.com/noah-isme/sma-qr-attendance/internal/attendance"
	"github.com/noah-isme/sma-qr-attendance/internal/handler"
	"github.com/noah-isme/sma-qr-attendance/internal/middleware"
	"github.com/noah-isme/sma-qr-attendance/internal/models"
	"github.com/noah-isme/sma-qr-attendance/internal/repository"
	"github.com/noah-isme/sma-qr-attendance/internal/service"
	"github.com/noah-isme/sma-qr-attendance/pkg/cache"
	"github.com/noah-isme/sma-qr-attendance/pkg/capture"
	"github.com/noah-isme/sma-qr-attendance/pkg/config"
	"github.com/noah-isme/sma-qr-attendance/pkg/database"
	"github.com/noah-isme/sma-qr-attendance/pkg/export"
	"github.com/noah-isme/sma-qr-attendance/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-qr-attendance/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-qr-attendance/pkg/middleware/requestid"
	"github.com/noah-isme/sma-qr-attendance/pkg/storage"
	"github.com/noah-isme/sma-qr-attendance/pkg/upload"
)

// App is the wired kiosk.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	metrics  *service.MetricsService
	auth     *service.AuthService
	sessions *service.SessionService
	exports  *service.ExportService
	uploads  *service.UploadService
	capture  *service.CaptureService

	closers []func() error
}

// NewApp builds every component from configuration. Optional collaborators
// (Redis, Drive) that fail to initialise are logged and left out.
func NewApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	if logr == nil {
		logr = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, exitErr(ExitCommandError, err)
	}
	app := &App{cfg: cfg, logger: logr, metrics: service.NewMetricsService()}
	validate := validator.New()
	notifier := service.NewLogNotifier(logr)

	sink, err := app.openSink(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	exports, err := newExportService(cfg, logr)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.exports = exports

	var uploader service.Uploader
	if cfg.Upload.Enabled {
		drive, err := upload.NewDriveUploader(ctx, cfg.Upload.CredentialsFile)
		if err != nil {
			notifier.NotifyError("Cloud upload disabled", err)
		} else {
			uploader = drive
		}
	}
	app.uploads = service.NewUploadService(uploader, service.UploadConfig{
		DisplayName: cfg.Upload.DisplayName,
		Async:       cfg.Upload.Async,
		Retries:     cfg.Upload.Retries,
	}, notifier, app.metrics, logr)

	cacheRepo := repository.NewCacheRepository(nil, cfg.Cache.Namespace, logr)
	cacheEnabled := cfg.Cache.Enabled
	if cacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("report cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			cacheRepo = repository.NewCacheRepository(client, cfg.Cache.Namespace, logr)
			app.closers = append(app.closers, cacheRepo.Close)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, app.metrics, cfg.Cache.TTL, logr, cacheEnabled)

	app.sessions = service.NewSessionService(
		repository.NewRosterFileRepository(cfg.Roster.Path),
		sink,
		attendance.NewPayloadParser(cfg.Payload.AcceptJSON, validate),
		exports,
		app.uploads,
		cacheSvc,
		notifier,
		app.metrics,
		service.SessionConfig{
			RosterRequired:        cfg.Roster.Required,
			SuppressDuplicateRows: cfg.Attendance.SuppressDuplicateRows,
			ReportTTL:             cfg.Cache.TTL,
		},
		logr,
	)

	source, err := capture.NewSpoolSource(cfg.Capture.SpoolDir)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.capture = service.NewCaptureService(source, capture.NewQRDecoder(), app.sessions, cfg.Capture.Interval, logr)

	app.auth = service.NewAuthService(validate, logr, service.AuthConfig{
		Secret:       cfg.JWT.Secret,
		Expiry:       cfg.JWT.Expiration,
		PasswordHash: cfg.Operator.PasswordHash,
	})
	return app, nil
}

func newExportService(cfg *config.Config, logr *zap.Logger) (*service.ExportService, error) {
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return nil, exitErr(ExitCommandError, err)
	}
	store, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewDownloadSigner(cfg.Export.SignedURLSecret, cfg.Export.SignedURLTTL)
	return service.NewExportService(store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		FileName:  cfg.Export.FileName,
		Format:    format,
		Retention: cfg.Export.Retention,
	}, logr, nil)
}

// attendanceSheetPath is the file written by the xlsx and csv sink drivers.
func attendanceSheetPath(cfg *config.Config) string {
	path := cfg.Attendance.SinkPath
	if cfg.Attendance.SinkDriver == config.SinkDriverCSV && !strings.EqualFold(filepath.Ext(path), ".csv") {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
	}
	return path
}

func (a *App) openSink(ctx context.Context) (attendance.Sink, error) {
	cfg := a.cfg
	switch cfg.Attendance.SinkDriver {
	case config.SinkDriverXLSX, config.SinkDriverCSV, "":
		sink, err := repository.NewAttendanceFileRepository(attendanceSheetPath(cfg))
		if err != nil {
			return nil, exitErr(ExitCommandError, err)
		}
		return sink, nil
	case config.SinkDriverPostgres, config.SinkDriverSQLite:
		db, err := database.Open(cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := repository.NewAttendanceRepository(db, a.metrics)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, exitErr(ExitCommandError, fmt.Errorf("unknown attendance sink driver %q", cfg.Attendance.SinkDriver))
	}
}

// Router mounts every HTTP route. base bounds background work started from
// a request, such as the capture loop.
func (a *App) Router(base context.Context) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.sessions)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(a.auth)
	attendanceHandler := handler.NewAttendanceHandler(a.sessions, a.sessions)
	captureHandler := handler.NewCaptureHandler(a.capture, base)
	exportHandler := handler.NewExportHandler(a.exports)

	api := r.Group(a.cfg.APIPrefix)
	api.POST("/auth/token", authHandler.Token)
	api.GET("/exports/:token", exportHandler.Download)

	secured := api.Group("", middleware.JWT(a.auth))
	secured.POST("/scans", middleware.RequireRoles(models.RoleOperator, models.RoleScanner), attendanceHandler.Scan)

	operator := secured.Group("", middleware.RequireRoles(models.RoleOperator))
	operator.GET("/attendance", attendanceHandler.Attendance)
	operator.POST("/absences", attendanceHandler.GenerateAbsences)
	operator.GET("/absences/latest", attendanceHandler.LatestAbsences)
	operator.GET("/capture", captureHandler.Status)
	operator.POST("/capture/start", captureHandler.Start)
	operator.POST("/capture/stop", captureHandler.Stop)

	return r
}

// Sessions exposes the session controller.
func (a *App) Sessions() *service.SessionService { return a.sessions }

// Close releases database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
