package cryptii

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/google/uuid"
)

var (
	ErrBrickNotFound    = errors.New("brick is not part of the pipe")
	ErrBrickAttached    = errors.New("brick is already part of a pipe")
	ErrIndexOutOfRange  = errors.New("brick index out of range")
	ErrBucketOutOfRange = errors.New("bucket index out of range")
	ErrInvalidPipeData  = errors.New("invalid pipe data")
	ErrInvalidBrickData = errors.New("invalid brick data")
	ErrUnknownBrickKind = errors.New("brick is neither a transform nor a display")
	ErrNoFactory        = errors.New("pipe has no brick factory")
	ErrNotDisplay       = errors.New("brick is not a display")
	ErrNotTransform     = errors.New("brick is not a transform")

	// ErrPipeRestructured is returned to waiters whose pipe was spliced
	// before it went idle.
	ErrPipeRestructured = errors.New("pipe was restructured")
	ErrPipeClosed       = errors.New("pipe is closed")
)

// InvalidInputError is the expected, user-facing failure of a brick.
type InvalidInputError = chain.InvalidInputError

// IsInvalidInput reports whether err is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	return chain.IsInvalidInput(err)
}

// BrickError wraps an unexpected failure of a brick operation.
type BrickError struct {
	BrickID    uuid.UUID
	BrickName  string
	Op         OperationKind
	Cause      error
	StackTrace []byte
}

func (e *BrickError) Error() string {
	return fmt.Sprintf("brick %s (%s) failed during %s: %v", e.BrickName, e.BrickID, e.Op, e.Cause)
}

func (e *BrickError) Unwrap() error {
	return e.Cause
}

func newBrickError(b Brick, op OperationKind, cause error) *BrickError {
	return &BrickError{
		BrickID:   b.ID(),
		BrickName: b.Name(),
		Op:        op,
		Cause:     cause,
	}
}

func newPanicError(b Brick, op OperationKind, recovered any) *BrickError {
	err := newBrickError(b, op, fmt.Errorf("panic: %v", recovered))
	err.StackTrace = debug.Stack()
	return err
}
