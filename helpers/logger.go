package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/wikicatalog/logger"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

// LoggerInterface defines the interface for logger implementations
type LoggerInterface interface {
	LogError(component string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger reports through the structured logger and, when errorFile is set,
// appends every error line to that file.
type Logger struct {
	errorFile string
	mu        sync.Mutex
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error with its component and timestamp
func (l *Logger) LogError(component string, err error) {
	logger.ForWorker().Error().
		Str("source", component).
		Str("type", string(apperrors.TypeOf(err))).
		Bool("retryable", apperrors.IsRetryable(err)).
		Err(err).
		Msg("Crawl error")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.ForWorker().Warn().Err(fileErr).Str("file", l.errorFile).Msg("Failed to open error log")
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, component, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.ForWorker().Info().Msgf(format, args...)
}
