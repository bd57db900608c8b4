// Package logging builds the service logger and adapts it for libraries that
// expect their own logger interface.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const timeFormat = "15:04:05"

// New returns a console logger at the given level. When logFile is set, a
// size-rotated file writer is attached as well.
func New(level, logFile string) arbor.ILogger {
	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       timeFormat,
		TextOutput:       true,
		DisableTimestamp: false,
	})

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "logging: cannot create log directory: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   logFile,
				TimeFormat: timeFormat,
				MaxSize:    100 * 1024 * 1024,
				MaxBackups: 7,
				TextOutput: true,
			})
		}
	}

	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}

// CronLogger adapts an arbor logger to robfig/cron's Logger interface.
type CronLogger struct {
	Logger arbor.ILogger
}

// Info logs routine scheduler activity at debug level; cron is chatty.
// Skipped overlapping runs are surfaced as warnings.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		c.Logger.Warn().Str("fields", formatKV(keysAndValues)).Msg("cron: previous run still in progress, skipping")
		return
	}
	c.Logger.Debug().Str("fields", formatKV(keysAndValues)).Msg("cron: " + msg)
}

// Error logs scheduler failures, including recovered panics.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Logger.Error().Err(err).Str("fields", formatKV(keysAndValues)).Msg("cron: " + msg)
}

func formatKV(kv []interface{}) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", kv[i], kv[i+1]))
	}
	if len(kv)%2 == 1 {
		parts = append(parts, fmt.Sprint(kv[len(kv)-1]))
	}
	return strings.Join(parts, " ")
}
