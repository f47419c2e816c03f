package service

import (
	"go.uber.org/zap"
)

// Notifier surfaces outcomes to whoever operates the kiosk. Implementations
// must not block the caller.
type Notifier interface {
	NotifyError(title string, err error)
	NotifyInfo(title, message string)
}

// LogNotifier emits operator notifications as structured log events.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a zap-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("operator")}
}

// NotifyError reports a failure.
func (n *LogNotifier) NotifyError(title string, err error) {
	n.logger.Warn("operator_notification",
		zap.String("level", "error"),
		zap.String("title", title),
		zap.Error(err),
	)
}

// NotifyInfo reports a routine event.
func (n *LogNotifier) NotifyInfo(title, message string) {
	n.logger.Info("operator_notification",
		zap.String("level", "info"),
		zap.String("title", title),
		zap.String("message", message),
	)
}
