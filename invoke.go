package cryptii

import (
	"context"
	"errors"
	"time"

	"github.com/cryptii/cryptii-sub001/chain"
)

// spawn runs a brick call on its own goroutine through the extension chain
// and hands the outcome to done under the pipe lock. Must be called with the
// lock held.
func (p *Pipe) spawn(op *Operation, call func(ctx context.Context) (*chain.Chain, error), done func(result *chain.Chain, err error, started time.Time)) {
	ctx := p.ctx
	exts := p.extensionsSnapshot()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		started := time.Now()
		result, err := invoke(ctx, op, call, exts)

		p.mu.Lock()
		done(result, err, started)
		p.unlock()
	}()
}

func invoke(ctx context.Context, op *Operation, call func(ctx context.Context) (*chain.Chain, error), exts []Extension) (*chain.Chain, error) {
	next := func() (result *chain.Chain, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = newPanicError(op.Brick, op.Kind, r)
			}
		}()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return call(ctx)
	}

	// Apply extensions in reverse order (last registered wraps first)
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (*chain.Chain, error) {
			return ext.Wrap(ctx, currentNext, op)
		}
	}

	result, err := next()
	if err != nil && !IsInvalidInput(err) {
		var brickErr *BrickError
		if !errors.As(err, &brickErr) {
			err = newBrickError(op.Brick, op.Kind, err)
		}
	}
	return result, err
}
