package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus.Logger with helpers for the RSVP domain.
type Logger struct {
	*logrus.Logger
}

type Fields map[string]interface{}

// New creates a logger from the logging section of the config.
func New(cfg *config.LoggingConfig) (*Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z",
		})
	}

	var output io.Writer = os.Stdout
	if cfg.Output == "file" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}
		output = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}
	logger.SetOutput(output)

	return &Logger{Logger: logger}, nil
}

// Discard returns a logger that drops everything. Used by tests and as the
// fallback when a component is built without a logger.
func Discard() *Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Logger{Logger: logger}
}

func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields(fields))
}

func (l *Logger) LogRequest(method, path, clientIP string, statusCode int, durationMs int64) {
	l.WithFields(Fields{
		"method":      method,
		"path":        path,
		"client_ip":   clientIP,
		"status_code": statusCode,
		"duration_ms": durationMs,
		"type":        "request",
	}).Info("HTTP request")
}

func (l *Logger) LogRSVP(guestID, eventID uint, stage, status string, draft bool) {
	l.WithFields(Fields{
		"guest_id": guestID,
		"event_id": eventID,
		"stage":    stage,
		"status":   status,
		"draft":    draft,
		"type":     "rsvp",
	}).Info("RSVP submitted")
}

func (l *Logger) LogRelationship(action string, guestID, otherGuestID uint, relationshipID uint) {
	l.WithFields(Fields{
		"action":          action,
		"guest_id":        guestID,
		"other_guest_id":  otherGuestID,
		"relationship_id": relationshipID,
		"type":            "relationship",
	}).Info("Relationship event")
}

func (l *Logger) LogToken(action string, guestID, eventID uint) {
	l.WithFields(Fields{
		"action":   action,
		"guest_id": guestID,
		"event_id": eventID,
		"type":     "token",
	}).Info("Token event")
}

func (l *Logger) LogDelivery(provider string, guestID uint, success bool, errMsg string) {
	entry := l.WithFields(Fields{
		"provider": provider,
		"guest_id": guestID,
		"success":  success,
		"type":     "delivery",
	})
	if errMsg != "" {
		entry = entry.WithField("error", errMsg)
	}

	if success {
		entry.Info("Message delivered")
	} else {
		entry.Warn("Message delivery failed")
	}
}

func (l *Logger) LogSecurity(event, ip string, details map[string]interface{}) {
	fields := Fields{
		"event": event,
		"ip":    ip,
		"type":  "security",
	}
	for k, v := range details {
		fields[k] = v
	}

	l.WithFields(fields).Warn("Security event")
}

var defaultLogger = Discard()

// Init builds the process-wide logger.
func Init(cfg *config.LoggingConfig) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	defaultLogger = logger
	return nil
}

func GetLogger() *Logger {
	return defaultLogger
}

// OrDefault returns l, or the process-wide logger when l is nil.
func OrDefault(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return defaultLogger
}
