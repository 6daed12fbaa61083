package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/artifacts"
	"github.com/spigell/resume-reviewer/internal/jdindex"
)

const notReadyHint = "run `resume-reviewer build --csv <corpus>` first"

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadIndex restores the persisted index or exits with a hint when there is none.
func loadIndex(ctx context.Context, config *Config, logger *zap.Logger) *jdindex.Index {
	idx := jdindex.New(config.Index, logger)
	if _, err := idx.Load(ctx); err != nil {
		logIndexError(logger, "system not ready", err)
	}
	return idx
}

func logIndexError(logger *zap.Logger, msg string, err error) {
	if errors.Is(err, artifacts.ErrNotBuilt) || errors.Is(err, artifacts.ErrMissingArtifact) {
		logger.Fatal(msg, zap.Error(err), zap.String("hint", notReadyHint))
	}
	logger.Fatal(msg, zap.Error(err))
}
