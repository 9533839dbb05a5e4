package cryptii

import "github.com/cryptii/cryptii-sub001/chain"

// Handle is a brick's back reference to the pipe it is part of. A handle
// is created when the brick is spliced in and goes stale when it is spliced
// out; calls through a stale handle fail with ErrBrickNotFound.
type Handle struct {
	pipe  *Pipe
	brick Brick
}

// Pipe returns the pipe the brick was spliced into.
func (h *Handle) Pipe() *Pipe {
	return h.pipe
}

// Brick returns the brick the handle belongs to.
func (h *Handle) Brick() Brick {
	return h.brick
}

// ContentChanged reports a local edit of a display brick.
func (h *Handle) ContentChanged(content *chain.Chain) error {
	return h.pipe.contentChanged(h, content)
}

// SettingsChanged reports a settings change of the brick.
func (h *Handle) SettingsChanged() {
	h.pipe.settingsChanged(h)
}

// Replace swaps the brick for another one at the same position.
func (h *Handle) Replace(with Brick) error {
	return h.pipe.ReplaceBrick(h.brick, with)
}
