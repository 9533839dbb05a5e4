package bricks

import (
	"context"
	"sync"

	cryptii "github.com/cryptii/cryptii-sub001"
)

const PlaceholderName = "placeholder"

// Placeholder stands in for a brick whose type is still loading. Once the
// brick is created it takes the placeholder's position in the pipe.
type Placeholder struct {
	*cryptii.DisplayBase
	factory *Factory
	data    cryptii.BrickData

	mu       sync.Mutex
	loaded   cryptii.Brick
	err      error
	replaced bool
	done     chan struct{}
}

func newPlaceholder(f *Factory, data cryptii.BrickData) *Placeholder {
	p := &Placeholder{
		factory: f,
		data:    data,
		done:    make(chan struct{}),
	}
	p.DisplayBase = cryptii.NewDisplayBase(PlaceholderName, nil, nil,
		cryptii.WithTitle(data.Name),
		cryptii.WithAttachObserver(p.attached),
	)
	return p
}

// Serialize returns the data of the brick being loaded.
func (p *Placeholder) Serialize() cryptii.BrickData {
	return p.data
}

// Wait blocks until loading finished and returns the loaded brick.
func (p *Placeholder) Wait(ctx context.Context) (cryptii.Brick, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded, p.err
}

func (p *Placeholder) load(ctx context.Context) {
	b, err := p.factory.LoadAndCreate(ctx, p.data)
	p.mu.Lock()
	p.loaded, p.err = b, err
	p.mu.Unlock()
	close(p.done)
	p.replace()
}

func (p *Placeholder) attached(h *cryptii.Handle) {
	if h != nil {
		p.replace()
	}
}

func (p *Placeholder) replace() {
	p.mu.Lock()
	h := p.Handle()
	if p.loaded == nil || p.replaced || h == nil {
		p.mu.Unlock()
		return
	}
	p.replaced = true
	b := p.loaded
	p.mu.Unlock()

	if err := h.Replace(b); err != nil {
		p.mu.Lock()
		p.replaced = false
		p.mu.Unlock()
	}
}
