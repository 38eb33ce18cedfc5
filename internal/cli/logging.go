// Package cli holds helpers shared by the command line tools.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a text logger on stderr at the named level and installs
// it as the default logger.
func NewLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)
	return log, nil
}

// RestrictionsPath returns the sidecar file holding the way restrictions of
// a prepared graph.
func RestrictionsPath(graphPath string) string {
	return strings.TrimSuffix(graphPath, ".bin") + ".restrictions.yaml"
}
