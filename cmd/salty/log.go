package main

import (
	"os"

	"github.com/decred/slog"
	"github.com/screa/salty/internal/logger"
	"github.com/screa/salty/pkg/gpu"
	"github.com/screa/salty/pkg/miner"
	"github.com/screa/salty/pkg/report"
)

// Subsystem tags
const (
	subsysCLI    = "SLTY"
	subsysMiner  = "MINR"
	subsysGPU    = "GPU"
	subsysReport = "RPRT"
)

var (
	logBackend = logger.New(os.Stdout)
	log        = logBackend.Logger(subsysCLI)
)

// initLogging points every subsystem at a backend writing to stdout and,
// when logFile is set, to a rotated log file, then applies the debug level
// specification.
func initLogging(logFile, debugLevel string) error {
	if logFile != "" {
		b, err := logger.NewRotating(os.Stdout, logFile)
		if err != nil {
			return err
		}
		logBackend = b
	}

	log = logBackend.Logger(subsysCLI)
	miner.UseLogger(logBackend.Logger(subsysMiner))
	gpu.UseLogger(logBackend.Logger(subsysGPU))
	report.UseLogger(logBackend.Logger(subsysReport))

	return logBackend.SetLevels(debugLevel)
}

func debugEnabled() bool {
	return log.Level() <= slog.LevelDebug
}
