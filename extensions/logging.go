package extensions

import (
	"context"
	"log/slog"
	"time"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
)

// LoggingExtension logs all brick operations
type LoggingExtension struct {
	cryptii.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a new logging extension
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: cryptii.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (*chain.Chain, error), op *cryptii.Operation) (*chain.Chain, error) {
	attrs := []any{
		"brick", op.Brick.Name(),
		"operation", string(op.Kind),
		"bucket", op.Bucket,
	}
	if dir := op.Direction(); dir != "" {
		attrs = append(attrs, "direction", dir)
	}

	start := time.Now()
	e.logger.DebugContext(ctx, "brick operation starting", attrs...)
	result, err := next()

	attrs = append(attrs, "duration", time.Since(start))
	switch {
	case err == nil:
		e.logger.DebugContext(ctx, "brick operation completed", attrs...)
	case cryptii.IsInvalidInput(err):
		e.logger.InfoContext(ctx, "brick rejected input", append(attrs, "error", err)...)
	default:
		e.logger.ErrorContext(ctx, "brick operation failed", append(attrs, "error", err)...)
	}

	return result, err
}

// OnSplice logs structural changes.
func (e *LoggingExtension) OnSplice(index int, removed, inserted []cryptii.Brick) {
	e.logger.Info("bricks spliced",
		"index", index,
		"removed", brickNames(removed),
		"inserted", brickNames(inserted),
	)
}

func brickNames(bricks []cryptii.Brick) []string {
	names := make([]string, len(bricks))
	for i, b := range bricks {
		names[i] = b.Name()
	}
	return names
}
