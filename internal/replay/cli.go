package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/rally/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends the global logger to stdout and to logFile. An empty
// logFile gets a timestamped name. The returned closer releases the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "replay_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the replay tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Rally Match Log Replay
======================

Rebuilds ladder state by replaying a YAML match log through the ladder
service, using the same store settings as the server.

Usage:
  go run ./cmd/replay [options] season.yaml

Options:
  -config string
        YAML config file (same keys as RALLY_CONFIG)
  -log string
        Log file for replay output (default: replay_TIMESTAMP.log)
  -top int
        Number of singles leaderboard rows to print at the end (default 10)
  -stop-on-error
        Abort at the first event that fails
  -timeout duration
        Overall replay timeout (default 10m)
  -help
        Show this help message

Log format:
  season: spring
  events:
    - kind: match          # register, match, doubles, history,
      report_id: r-001     # medal, stat, peak, h2h
      winner: alice
      loser: bob
      winner_score: 3
      loser_score: 1

Examples:
  # Replay into the default file store
  go run ./cmd/replay seasons/spring.yaml

  # Replay into SQLite and stop on the first bad event
  RALLY_STORE_BACKEND=sqlite go run ./cmd/replay -stop-on-error seasons/spring.yaml
`)
}
