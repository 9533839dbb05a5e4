package cryptii

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/go-playground/validator/v10"
)

// PipeData is the shared and persisted form of a pipe.
type PipeData struct {
	URL   string      `json:"url,omitempty"`
	Items []BrickData `json:"items" validate:"required,min=1,dive"`
	// Content is a serialized chain: a string or {"data", "padding"}.
	Content json.RawMessage `json:"content" validate:"required"`
	// ContentIndex is the index of the brick the content follows. Nil
	// means the content sits before the first transform.
	ContentIndex *int `json:"contentIndex,omitempty" validate:"omitempty,gte=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the structural rules of pipe data.
func (d *PipeData) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPipeData, err)
	}
	if bytes.Equal(bytes.TrimSpace(d.Content), []byte("null")) {
		return fmt.Errorf("%w: content is required", ErrInvalidPipeData)
	}
	if d.ContentIndex != nil && *d.ContentIndex >= len(d.Items) {
		return fmt.Errorf("%w: contentIndex %d out of range for %d items", ErrInvalidPipeData, *d.ContentIndex, len(d.Items))
	}
	return nil
}

// ParsePipeData decodes and validates JSON pipe data.
func ParsePipeData(raw []byte) (*PipeData, error) {
	var data PipeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeData, err)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// Serialize returns the bricks and the content of the selected bucket.
func (p *Pipe) Serialize() (*PipeData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.bricks) == 0 {
		return nil, fmt.Errorf("%w: pipe has no bricks", ErrInvalidPipeData)
	}
	return p.snapshot()
}

func (p *Pipe) snapshot() (*PipeData, error) {
	content, err := json.Marshal(p.content[p.selected])
	if err != nil {
		return nil, err
	}
	data := &PipeData{
		URL:     p.url,
		Items:   make([]BrickData, len(p.bricks)),
		Content: content,
	}
	for i, st := range p.bricks {
		data.Items[i] = st.brick.Serialize()
	}
	if below := p.buckets[p.selected].below; below != nil {
		index := p.indexOf(below.brick)
		data.ContentIndex = &index
	}
	return data, nil
}

// Extract replaces all bricks with the ones described by data, injects the
// content at its bucket and records the initial undo snapshot.
func (p *Pipe) Extract(data *PipeData) error {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	return p.extract(data, true)
}

func (p *Pipe) extract(data *PipeData, record bool) error {
	if data == nil {
		return fmt.Errorf("%w: nil", ErrInvalidPipeData)
	}
	if err := data.Validate(); err != nil {
		return err
	}
	content, err := chain.ExtractJSON(data.Content)
	if err != nil {
		return fmt.Errorf("%w: content: %w", ErrInvalidPipeData, err)
	}
	if p.factory == nil {
		return ErrNoFactory
	}

	states := make([]*brickState, len(data.Items))
	for i, item := range data.Items {
		b, err := p.factory.Create(item)
		if err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrInvalidPipeData, i, err)
		}
		if states[i], err = newBrickState(b); err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrInvalidPipeData, i, err)
		}
	}
	bucket := 0
	if data.ContentIndex != nil {
		bucket = countTransforms(states[:*data.ContentIndex+1])
	}

	p.historySuspended++
	p.rejectWaiters(ErrPipeRestructured)

	removed := make([]Brick, len(p.bricks))
	for i, st := range p.bricks {
		removed[i] = st.brick
		p.detach(st)
	}
	p.bricks = states
	inserted := make([]Brick, len(states))
	for i, st := range states {
		inserted[i] = st.brick
		p.attach(st)
	}

	p.content = make([]*chain.Chain, countTransforms(states)+1)
	for k := range p.content {
		p.content[k] = chain.Empty()
	}
	p.relayout()
	p.url = data.URL
	p.selected = bucket
	p.content[bucket] = content

	p.emit(func(ext Extension) {
		ext.OnSplice(0, removed, inserted)
		ext.OnContentChange(bucket, content, nil)
	})
	p.propagate(bucket, nil, both)
	for _, st := range states {
		if st.kind == KindDisplay {
			p.triggerView(st)
		}
	}
	p.historySuspended--

	if record {
		p.record("extract")
	}
	return nil
}

// record pushes a snapshot to the undo history.
func (p *Pipe) record(action string) {
	if p.history == nil || p.historySuspended > 0 || len(p.bricks) == 0 {
		return
	}
	data, err := p.snapshot()
	if err == nil {
		var raw []byte
		if raw, err = json.Marshal(data); err == nil {
			p.history.Push(action, string(raw))
			return
		}
	}
	p.logger.Warn("skipping history entry", "action", action, "error", err)
}

// Undo restores the previous snapshot. It reports false if there is none.
func (p *Pipe) Undo() (bool, error) {
	return p.travel(func(h *History) (string, bool) { return h.Undo() })
}

// Redo restores the snapshot undone last. It reports false if there is
// none.
func (p *Pipe) Redo() (bool, error) {
	return p.travel(func(h *History) (string, bool) { return h.Redo() })
}

func (p *Pipe) travel(move func(*History) (string, bool)) (bool, error) {
	if p.history == nil {
		return false, nil
	}
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return false, ErrPipeClosed
	}
	state, ok := move(p.history)
	if !ok {
		return false, nil
	}
	var data PipeData
	if err := json.Unmarshal([]byte(state), &data); err != nil {
		return false, fmt.Errorf("%w: history entry: %w", ErrInvalidPipeData, err)
	}
	if err := p.extract(&data, false); err != nil {
		return false, err
	}
	return true, nil
}
