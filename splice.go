package cryptii

import (
	"fmt"
	"slices"

	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/google/uuid"
)

// SpliceBricks removes removeCount bricks at index and inserts bricks in
// their place. It returns the removed bricks. Pending waiters fail with
// ErrPipeRestructured.
func (p *Pipe) SpliceBricks(index, removeCount int, inserted ...Brick) ([]Brick, error) {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return nil, ErrPipeClosed
	}
	removed, err := p.splice(index, removeCount, inserted)
	if err != nil {
		return nil, err
	}
	p.record("splice")
	return removed, nil
}

// AddBricks appends bricks to the end of the pipe.
func (p *Pipe) AddBricks(bricks ...Brick) error {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	if _, err := p.splice(len(p.bricks), 0, bricks); err != nil {
		return err
	}
	p.record("splice")
	return nil
}

// InsertBricks inserts bricks at index.
func (p *Pipe) InsertBricks(index int, bricks ...Brick) error {
	_, err := p.SpliceBricks(index, 0, bricks...)
	return err
}

// RemoveBrick removes b from the pipe.
func (p *Pipe) RemoveBrick(b Brick) error {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	index := p.indexOf(b)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrBrickNotFound, describeBrick(b))
	}
	if _, err := p.splice(index, 1, nil); err != nil {
		return err
	}
	p.record("splice")
	return nil
}

// ReplaceBrick puts with in place of b.
func (p *Pipe) ReplaceBrick(b, with Brick) error {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	index := p.indexOf(b)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrBrickNotFound, describeBrick(b))
	}
	if _, err := p.splice(index, 1, []Brick{with}); err != nil {
		return err
	}
	p.record("replace")
	return nil
}

// MoveBrick moves b to index, counted after its removal. Its in-flight
// operation, if any, is kept and checked against the new position when it
// returns.
func (p *Pipe) MoveBrick(b Brick, index int) error {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	from := p.indexOf(b)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrBrickNotFound, describeBrick(b))
	}
	if index < 0 || index >= len(p.bricks) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(p.bricks))
	}
	if from == index {
		return nil
	}
	st := p.bricks[from]
	p.spliceStates(from, 1, nil, true)
	p.spliceStates(index, 0, []*brickState{st}, true)
	p.record("move")
	return nil
}

// DuplicateBrick inserts a copy of b right after it and returns the copy.
func (p *Pipe) DuplicateBrick(b Brick) (Brick, error) {
	if p.factory == nil {
		return nil, ErrNoFactory
	}
	clone, err := p.factory.Duplicate(b)
	if err != nil {
		return nil, fmt.Errorf("duplicating %s: %w", describeBrick(b), err)
	}

	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return nil, ErrPipeClosed
	}
	index := p.indexOf(b)
	if index < 0 {
		return nil, fmt.Errorf("%w: %s", ErrBrickNotFound, describeBrick(b))
	}
	if _, err := p.splice(index+1, 0, []Brick{clone}); err != nil {
		return nil, err
	}
	p.record("duplicate")
	return clone, nil
}

// ReverseBrick toggles the reverse flag of a transform brick.
func (p *Pipe) ReverseBrick(b Brick) error {
	p.mu.Lock()
	st, err := p.stateOf(b)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if st.transform == nil {
		return fmt.Errorf("%w: %s", ErrNotTransform, describeBrick(b))
	}
	st.transform.SetReversed(!st.transform.Reversed())
	return nil
}

// Clear removes all bricks.
func (p *Pipe) Clear() error {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	if _, err := p.splice(0, len(p.bricks), nil); err != nil {
		return err
	}
	p.record("splice")
	return nil
}

// splice validates the arguments, builds states for the inserted bricks
// and applies the change.
func (p *Pipe) splice(index, removeCount int, inserted []Brick) ([]Brick, error) {
	if index < 0 || index > len(p.bricks) || removeCount < 0 || index+removeCount > len(p.bricks) {
		return nil, fmt.Errorf("%w: splice(%d, %d) of %d", ErrIndexOutOfRange, index, removeCount, len(p.bricks))
	}
	removing := p.bricks[index : index+removeCount]

	states := make([]*brickState, 0, len(inserted))
	seen := make(map[uuid.UUID]bool, len(inserted))
	for _, b := range inserted {
		if b == nil {
			return nil, fmt.Errorf("%w: nil brick", ErrUnknownBrickKind)
		}
		id := b.ID()
		_, inPipe := p.states[id]
		leaving := slices.ContainsFunc(removing, func(st *brickState) bool {
			return st.brick.ID() == id
		})
		if seen[id] || (inPipe && !leaving) || (b.Handle() != nil && !leaving) {
			return nil, fmt.Errorf("%w: %s", ErrBrickAttached, describeBrick(b))
		}
		seen[id] = true

		st, err := newBrickState(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, describeBrick(b))
		}
		states = append(states, st)
	}

	removed := p.spliceStates(index, removeCount, states, false)
	out := make([]Brick, len(removed))
	for i, st := range removed {
		out[i] = st.brick
	}
	return out, nil
}

// spliceStates performs the structural change and the bucket relocation.
// With keep set, removed states stay attached so they can be inserted
// again.
func (p *Pipe) spliceStates(index, removeCount int, inserted []*brickState, keep bool) []*brickState {
	before := countTransforms(p.bricks[:index])
	removed := slices.Clone(p.bricks[index : index+removeCount])
	r := countTransforms(removed)
	i := countTransforms(inserted)

	p.rejectWaiters(ErrPipeRestructured)

	for _, st := range removed {
		if !keep {
			p.detach(st)
		}
	}
	p.bricks = slices.Replace(p.bricks, index, index+removeCount, inserted...)
	for _, st := range inserted {
		if st.handle == nil {
			p.attach(st)
		}
	}

	// the buckets changed are the upper buckets of the changed transforms
	start := before + 1
	from, dir := -1, both
	if r > 0 || i > 0 {
		oldEnd := start + r
		sel := p.selected

		content := make([]*chain.Chain, 0, len(p.content)+i-r)
		content = append(content, p.content[:start]...)
		for range i {
			content = append(content, chain.Empty())
		}
		content = append(content, p.content[oldEnd:]...)

		switch {
		case sel < start:
			from, dir = start-1, forward
		case r == 1 && i == 1 && sel == start:
			// one transform replaced by one: keep the selected content
			content[start] = p.content[start]
			from, dir = start, backward
		case sel < oldEnd:
			p.selected = start - 1
			from, dir = start-1, forward
		default:
			p.selected = sel + i - r
			from, dir = start+i, backward
		}
		p.content = content
	}
	p.relayout()

	p.logger.Debug("splice",
		"index", index,
		"removed", len(removed),
		"inserted", len(inserted),
		"buckets", len(p.content),
		"selected", p.selected,
	)

	if from >= 0 {
		p.propagate(from, nil, dir)
	}
	for _, st := range inserted {
		if st.kind == KindDisplay {
			p.triggerView(st)
		}
	}

	removedBricks := make([]Brick, len(removed))
	for k, st := range removed {
		removedBricks[k] = st.brick
	}
	insertedBricks := make([]Brick, len(inserted))
	for k, st := range inserted {
		insertedBricks[k] = st.brick
	}
	p.emit(func(ext Extension) {
		ext.OnSplice(index, removedBricks, insertedBricks)
	})
	return removed
}

func (p *Pipe) attach(st *brickState) {
	h := &Handle{pipe: p, brick: st.brick}
	st.handle = h
	st.removed = false
	p.states[st.brick.ID()] = st
	b := st.brick.base()
	b.setHandle(h)
	if fn := b.attachObserver; fn != nil {
		p.outbox = append(p.outbox, func() { fn(h) })
	}
}

func (p *Pipe) detach(st *brickState) {
	st.removed = true
	st.handle = nil
	delete(p.states, st.brick.ID())
	b := st.brick.base()
	b.setHandle(nil)
	if fn := b.attachObserver; fn != nil {
		p.outbox = append(p.outbox, func() { fn(nil) })
	}
}

func describeBrick(b Brick) string {
	if b == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%s)", b.Name(), b.ID())
}
