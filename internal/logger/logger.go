package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Log rotation parameters
const (
	RotateThresholdKB = 10 * 1024
	MaxRolls          = 3
)

// Backend owns the slog backend all subsystem loggers write to. When a log
// file is configured, every line goes to both the console and the rotated
// file.
type Backend struct {
	*slog.Backend

	rotator *rotator.Rotator

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

// New creates a backend that writes to w.
func New(w io.Writer) *Backend {
	return &Backend{
		Backend: slog.NewBackend(w),
		loggers: make(map[string]slog.Logger),
	}
}

// NewRotating creates a backend that writes to console and to logFile,
// rolling the file once it exceeds RotateThresholdKB.
func NewRotating(console io.Writer, logFile string) (*Backend, error) {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	r, err := rotator.New(logFile, RotateThresholdKB, false, MaxRolls)
	if err != nil {
		return nil, fmt.Errorf("failed to create file rotator: %w", err)
	}

	b := New(io.MultiWriter(console, r))
	b.rotator = r
	return b, nil
}

// Logger returns the logger for a subsystem tag, creating it on first use.
func (b *Backend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	l := b.Backend.Logger(subsystem)
	b.loggers[subsystem] = l
	return l
}

// Subsystems returns the tags of all loggers created so far, sorted.
func (b *Backend) Subsystems() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	tags := make([]string, 0, len(b.loggers))
	for tag := range b.loggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// SetLevels applies a debug level specification. It is either a single level
// applied to every subsystem ("debug") or a comma separated list of
// SUBSYS=level pairs ("GPU=trace,MINR=info").
func (b *Backend) SetLevels(spec string) error {
	if !strings.Contains(spec, "=") {
		level, ok := slog.LevelFromString(spec)
		if !ok {
			return fmt.Errorf("invalid debug level %q", spec)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, l := range b.loggers {
			l.SetLevel(level)
		}
		return nil
	}

	for _, pair := range strings.Split(spec, ",") {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("invalid subsystem/level pair %q", pair)
		}
		tag, levelStr := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])

		b.mu.Lock()
		l, ok := b.loggers[tag]
		b.mu.Unlock()
		if !ok {
			return fmt.Errorf("unknown subsystem %q, supported: %s", tag,
				strings.Join(b.Subsystems(), ", "))
		}
		level, ok := slog.LevelFromString(levelStr)
		if !ok {
			return fmt.Errorf("invalid debug level %q for %s", levelStr, tag)
		}
		l.SetLevel(level)
	}
	return nil
}

// Close flushes and closes the log file, if any.
func (b *Backend) Close() error {
	if b.rotator == nil {
		return nil
	}
	return b.rotator.Close()
}
