package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogDirEnv overrides the directory log files are written to.
const LogDirEnv = "PWPLUGIN_LOG_DIR"

// Logger provides structured debug logging for pwplugin components.
// All logs of one run are written to a session-specific file in ~/.pwplugin/logs/
// (or $PWPLUGIN_LOG_DIR), one line per entry tagged with the component name.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	entry     *logrus.Entry
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current run
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error
)

// getSessionID returns or creates the session ID for this run
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			logDir = os.Getenv(LogDirEnv)
		}
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".pwplugin", "logs")
		}

		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

func newBaseLogger(w io.Writer) *logrus.Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return base
}

// NewLogger creates a new logger for a specific component.
// The logger writes to <log dir>/<session-id>-pwplugin.log
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
// Callers can check the error to detect fallback mode and log warnings.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-pwplugin.log", sessID))

	// Append mode: every component of the run shares the file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		entry:     newBaseLogger(file).WithField("component", component),
		logPath:   logPath,
	}, nil
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	entry := newBaseLogger(os.Stderr).WithField("component", component)
	entry.Warnf("Failed to initialize file logging: %v", err)
	entry.Warn("Falling back to stderr logging")

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		entry:     entry,
	}
}

// WithField returns a logger that adds key=value to every entry. The derived
// logger shares the parent's file but does not own it: closing it is a no-op.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component,
		entry:     l.entry.WithField(key, value),
		logPath:   l.logPath,
	}
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
