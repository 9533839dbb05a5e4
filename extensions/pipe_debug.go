package extensions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/google/uuid"
)

// PipeDebugExtension logs the bucket layout of a pipe when a brick fails
// unexpectedly.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewPipeDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewPipeDebugExtension(handler)
//
//	// Silent (for testing)
//	ext := extensions.NewPipeDebugExtension(extensions.NewSilentHandler())
//
// The extension logs at ERROR level for both brick failures and panics.
type PipeDebugExtension struct {
	cryptii.BaseExtension

	mu sync.Mutex
	// last error per brick, nil after a success
	outcomes map[uuid.UUID]error
	logger   *slog.Logger
}

// NewPipeDebugExtension creates a new pipe debug extension.
func NewPipeDebugExtension(logHandler slog.Handler) *PipeDebugExtension {
	return &PipeDebugExtension{
		BaseExtension: cryptii.NewBaseExtension("pipe-debug"),
		outcomes:      make(map[uuid.UUID]error),
		logger:        slog.New(logHandler),
	}
}

// Wrap tracks the outcome of every brick operation
func (e *PipeDebugExtension) Wrap(ctx context.Context, next func() (*chain.Chain, error), op *cryptii.Operation) (*chain.Chain, error) {
	result, err := next()

	e.mu.Lock()
	e.outcomes[op.Brick.ID()] = err
	e.mu.Unlock()

	return result, err
}

// OnError logs the pipe layout when a brick fails
func (e *PipeDebugExtension) OnError(err error, op *cryptii.Operation, p *cryptii.Pipe) {
	e.logger.Error("Brick Failure",
		"brick", op.Brick.Name(),
		"error", err.Error(),
		"operation", operationName(op),
		"pipe_layout", e.formatPipe(p, op.Brick),
	)

	var brickErr *cryptii.BrickError
	if errors.As(err, &brickErr) && len(brickErr.StackTrace) > 0 {
		e.logger.Error("Brick Panic",
			"panic", brickErr.Cause.Error(),
			"brick", op.Brick.Name(),
			"stack_trace", string(brickErr.StackTrace),
		)
	}
}

// OnSplice forgets the outcomes of removed bricks.
func (e *PipeDebugExtension) OnSplice(index int, removed, inserted []cryptii.Brick) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range removed {
		delete(e.outcomes, b.ID())
	}
}

func (e *PipeDebugExtension) formatPipe(p *cryptii.Pipe, failed cryptii.Brick) string {
	var sb strings.Builder
	sb.WriteString("\n")
	for _, line := range strings.Split(strings.TrimRight(p.Describe(), "\n"), "\n") {
		sb.WriteString("  " + line + "\n")
	}

	bricks := p.Bricks()
	if len(bricks) == 0 {
		sb.WriteString("\n(empty - no bricks)")
		return sb.String()
	}

	sb.WriteString("\nBricks:\n")
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, b := range bricks {
		status := " (pending)"
		if b.ID() == failed.ID() {
			status = " ❌ FAILED"
		} else if err, seen := e.outcomes[b.ID()]; seen && err == nil {
			status = " ✓"
		} else if seen {
			status = fmt.Sprintf(" ❌ (error: %v)", err)
		}
		fmt.Fprintf(&sb, "  %d. %s%s\n", i, b.Name(), status)
	}
	return sb.String()
}

func operationName(op *cryptii.Operation) string {
	if dir := op.Direction(); dir != "" {
		return string(op.Kind) + " (" + dir + ")"
	}
	return string(op.Kind)
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats logs for human readability
// with proper line breaks and visual formatting (especially for pipe
// layouts)
type HumanHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch record.Message {
	case "Brick Failure":
		return h.handleBrickFailure(record)
	case "Brick Panic":
		return h.handleBrickPanic(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func attrs(record slog.Record) map[string]string {
	out := make(map[string]string, record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.String()
		return true
	})
	return out
}

func (h *HumanHandler) banner(title string, body func(w io.Writer) error) error {
	rule := strings.Repeat("=", 70)
	if _, err := fmt.Fprintf(h.writer, "\n%s\n[PipeDebug] %s\n%s\n", rule, title, rule); err != nil {
		return err
	}
	if err := body(h.writer); err != nil {
		return err
	}
	_, err := fmt.Fprintf(h.writer, "%s\n\n", rule)
	return err
}

func (h *HumanHandler) handleBrickFailure(record slog.Record) error {
	a := attrs(record)
	return h.banner("Brick Failure", func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "\nFailed Brick: %s\nError: %s\nOperation: %s\n\nPipe Layout:%s",
			a["brick"], a["error"], a["operation"], a["pipe_layout"])
		return err
	})
}

func (h *HumanHandler) handleBrickPanic(record slog.Record) error {
	a := attrs(record)
	return h.banner("Brick Panic", func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "\nPanic: %s\nBrick: %s\n\nStack Trace:\n%s\n",
			a["panic"], a["brick"], a["stack_trace"])
		return err
	})
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
