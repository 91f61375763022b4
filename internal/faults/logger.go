package faults

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Logger appends one line per observed timeout to a configured file.
// Append failures are reported through zap and never abort the pipeline.
type Logger struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
	now  func() time.Time
}

// NewLogger builds a timeout logger writing to path. An empty path disables
// the file sink entirely.
func NewLogger(path string, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{
		path: path,
		log:  log,
		now:  time.Now,
	}
}

// Log appends a single timeout line. locatorURL may be empty for
// period-scope timeouts.
func (l *Logger) Log(scope, periodKey string, attempt, maxAttempts int, locatorURL string, err error) {
	if l == nil || l.path == "" {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s scope=%s period=%s attempt=%d/%d",
		l.now().UTC().Format(time.RFC3339), scope, periodKey, attempt, maxAttempts)
	if locatorURL != "" {
		fmt.Fprintf(&b, " url=%s", locatorURL)
	}
	fmt.Fprintf(&b, " error=%s\n", flatten(err))

	l.mu.Lock()
	defer l.mu.Unlock()
	if writeErr := l.append(b.String()); writeErr != nil {
		l.log.Warn("timeout log append failed",
			zap.String("path", l.path),
			zap.Error(writeErr),
		)
	}
}

func (l *Logger) append(line string) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open timeout log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write timeout log: %w", err)
	}
	return nil
}

func flatten(err error) string {
	if err == nil {
		return ""
	}
	return strings.Join(strings.Fields(err.Error()), " ")
}
