package cryptii

import (
	"context"

	"github.com/cryptii/cryptii-sub001/chain"
)

// Extension provides hooks into the propagation lifecycle. Hooks other
// than Wrap run without the pipe lock held, in the order the pipe produced
// the events, so they may call back into the pipe.
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a pipe
	Init(p *Pipe) error

	// Wrap intercepts brick operations (translate, view). It runs on the
	// operation's goroutine.
	Wrap(ctx context.Context, next func() (*chain.Chain, error), op *Operation) (*chain.Chain, error)

	// OnError handles unexpected brick failures
	OnError(err error, op *Operation, p *Pipe)

	// OnBrickFinished is called after every completed brick operation
	OnBrickFinished(op *Operation, err error)

	// OnContentChange is called when a bucket commits new content
	OnContentChange(bucket int, content *chain.Chain, sender Brick)

	// OnSplice is called after the brick sequence changed
	OnSplice(index int, removed, inserted []Brick)

	// Dispose is called when the pipe is closed
	Dispose(p *Pipe) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(p *Pipe) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (*chain.Chain, error), op *Operation) (*chain.Chain, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, p *Pipe) {
}

func (e *BaseExtension) OnBrickFinished(op *Operation, err error) {
}

func (e *BaseExtension) OnContentChange(bucket int, content *chain.Chain, sender Brick) {
}

func (e *BaseExtension) OnSplice(index int, removed, inserted []Brick) {
}

func (e *BaseExtension) Dispose(p *Pipe) error {
	return nil
}

// Operation describes a brick call in flight
type Operation struct {
	Kind  OperationKind
	Brick Brick
	// Bucket is the bucket the input content was read from.
	Bucket   int
	IsEncode bool
	Content  *chain.Chain
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpTranslate indicates a transform brick translation
	OpTranslate OperationKind = "translate"
	// OpView indicates a display brick view
	OpView OperationKind = "view"
)

// Direction names the direction of a translation for logs.
func (op *Operation) Direction() string {
	switch {
	case op.Kind != OpTranslate:
		return ""
	case op.IsEncode:
		return "encode"
	default:
		return "decode"
	}
}
