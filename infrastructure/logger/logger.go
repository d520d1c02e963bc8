package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	logger  = log.New()
	logFile *os.File
)

func init() {
	// stdout carries command output, so logs go to stderr unless LOG_TO_FILE=true.
	logger.Out = os.Stderr
	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	logger.SetLevel(log.WarnLevel)
	ApplyEnv()
}

// ApplyEnv re-reads LOG_LEVEL and LOG_TO_FILE. main calls it again once the
// env files are loaded, since init runs before they are.
func ApplyEnv() {
	if os.Getenv("LOG_TO_FILE") == "true" && logFile == nil {
		if f, err := openLogFile(); err != nil {
			logger.Warnf("Failed to open log file: %v, falling back to stderr", err)
		} else {
			logFile = f
			logger.Out = f
		}
	}
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}
}

func openLogFile() (*os.File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logsDir := filepath.Join(home, ".config", "threadsctl", "logs")
	if err := os.MkdirAll(logsDir, 0o700); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s.log", time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// SetLevel overrides the level chosen at startup (used by --verbose).
func SetLevel(level log.Level) { logger.SetLevel(level) }

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) { logger.Out = w }

func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)

	functionObject := runtime.FuncForPC(function)
	entry := logger.WithFields(log.Fields{
		"function": functionObject.Name(),
		"file":     filepath.Base(file),
		"line":     line,
	})

	return entry
}
