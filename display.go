package cryptii

import (
	"context"
	"fmt"

	"github.com/cryptii/cryptii-sub001/chain"
)

// DisplayBrick shows and edits the content of a single bucket.
type DisplayBrick interface {
	Brick
	View(ctx context.Context, content *chain.Chain) error
	// Content returns what the brick currently shows.
	Content() *chain.Chain
}

// Renderer presents content. Returning an InvalidInputError marks content
// the display cannot show.
type Renderer interface {
	Render(ctx context.Context, content *chain.Chain) error
}

// DisplayBase implements DisplayBrick. The renderer may be nil.
type DisplayBase struct {
	*Base
	renderer Renderer
	content  *chain.Chain
}

// NewDisplayBase creates the base of a display brick.
func NewDisplayBase(name string, settings Form, renderer Renderer, opts ...BrickOption) *DisplayBase {
	return &DisplayBase{
		Base:     newBase(name, KindDisplay, settings, opts),
		renderer: renderer,
		content:  chain.Empty(),
	}
}

// View stores the content and renders it.
func (d *DisplayBase) View(ctx context.Context, content *chain.Chain) error {
	d.mu.Lock()
	d.content = content
	d.mu.Unlock()
	if d.renderer == nil {
		return nil
	}
	return d.renderer.Render(ctx, content)
}

func (d *DisplayBase) Content() *chain.Chain {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

// Edit replaces the content as a local user edit and reports it to the
// pipe, which makes the brick's bucket the selected one.
func (d *DisplayBase) Edit(content *chain.Chain) error {
	if content == nil {
		return fmt.Errorf("%w: nil content", ErrInvalidBrickData)
	}
	d.mu.Lock()
	d.content = content
	d.mu.Unlock()
	if h := d.Handle(); h != nil {
		return h.ContentChanged(content)
	}
	return nil
}

func (d *DisplayBase) Serialize() BrickData {
	return d.serialize()
}

func (d *DisplayBase) Extract(data BrickData) error {
	return d.extract(data)
}
