package cryptii

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptii/cryptii-sub001/chain"
)

type direction int

const (
	both direction = iota
	forward
	backward
)

func (d direction) String() string {
	switch d {
	case forward:
		return "forward"
	case backward:
		return "backward"
	default:
		return "both"
	}
}

// SetContent commits content to a bucket. A nil sender or a display sender
// makes the bucket the selected one.
func (p *Pipe) SetContent(content *chain.Chain, bucket int, sender Brick) error {
	if content == nil {
		return fmt.Errorf("%w: nil content", ErrInvalidPipeData)
	}
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	if err := p.checkBucket(bucket); err != nil {
		return err
	}
	var st *brickState
	if sender != nil {
		var err error
		if st, err = p.stateOf(sender); err != nil {
			return err
		}
	}
	p.setContent(content, bucket, st)
	return nil
}

func (p *Pipe) contentChanged(h *Handle, content *chain.Chain) error {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return ErrPipeClosed
	}
	st, err := p.stateOfHandle(h)
	if err != nil {
		return err
	}
	if st.kind != KindDisplay {
		return fmt.Errorf("%w: %s", ErrNotDisplay, st.brick.Name())
	}
	p.setContent(content, st.bucket, st)
	return nil
}

func (p *Pipe) settingsChanged(h *Handle) {
	p.mu.Lock()
	defer p.unlock()
	if p.closed {
		return
	}
	st, err := p.stateOfHandle(h)
	if err != nil {
		return
	}
	st.version++
	p.logger.Debug("settings changed",
		"brick", st.brick.Name(),
		"version", st.version,
	)

	switch st.kind {
	case KindDisplay:
		p.triggerView(st)
	case KindTransform:
		// translate away from the selected side
		p.triggerTranslation(st, p.selected <= st.bucket)
	}
	p.record("settings")
}

// setContent is the only writer of bucket content.
func (p *Pipe) setContent(content *chain.Chain, bucket int, sender *brickState) {
	if p.content[bucket].Equal(content) {
		return
	}
	p.content[bucket] = content

	if sender == nil || sender.kind == KindDisplay {
		p.selected = bucket
		if sender != nil {
			sender.viewed = content
			sender.viewedVersion = sender.version
		}
		p.record("content")
	}

	var senderBrick Brick
	if sender != nil {
		senderBrick = sender.brick
	}
	p.emit(func(ext Extension) {
		ext.OnContentChange(bucket, content, senderBrick)
	})

	p.propagate(bucket, sender, both)
}

// propagate notifies the bricks attached to bucket, except sender.
func (p *Pipe) propagate(bucket int, sender *brickState, dir direction) {
	slot := p.buckets[bucket]
	p.logger.Debug("propagate",
		"bucket", bucket,
		"direction", dir.String(),
		"content", p.content[bucket],
	)

	for _, d := range slot.displays {
		if d != sender {
			p.triggerView(d)
		}
	}
	if dir != forward && slot.below != nil && slot.below != sender {
		p.triggerTranslation(slot.below, false)
	}
	if dir != backward && slot.above != nil && slot.above != sender {
		p.triggerTranslation(slot.above, true)
	}
}

func (p *Pipe) triggerView(st *brickState) {
	if st.busy || p.closed {
		return
	}
	content := p.content[st.bucket]
	if st.viewed != nil && st.viewedVersion == st.version && st.viewed.Equal(content) {
		return
	}

	st.busy = true
	version := st.version
	op := &Operation{
		Kind:    OpView,
		Brick:   st.brick,
		Bucket:  st.bucket,
		Content: content,
	}
	p.spawn(op,
		func(ctx context.Context) (*chain.Chain, error) {
			return nil, st.display.View(ctx, content)
		},
		func(_ *chain.Chain, err error, started time.Time) {
			p.finishView(st, op, content, version, err, started)
		},
	)
}

func (p *Pipe) finishView(st *brickState, op *Operation, content *chain.Chain, version int, err error, started time.Time) {
	if p.closed {
		return
	}
	st.busy = false
	rec := RunRecord{
		BrickID:   st.brick.ID(),
		BrickName: st.brick.Name(),
		Kind:      OpView,
		Started:   started,
		Duration:  time.Since(started),
		Outcome:   outcomeOf(err, OutcomeViewed),
		Err:       err,
	}
	if st.removed {
		rec.Outcome = OutcomeDiscarded
	} else {
		st.viewed = content
		st.viewedVersion = version
		if !p.content[st.bucket].Equal(content) || st.version != version {
			rec.Retriggered = true
			p.triggerView(st)
		}
	}
	p.runs.add(rec)
	p.finished(st, op, err)
}

func (p *Pipe) triggerTranslation(st *brickState, isEncode bool) {
	if st.busy || p.closed {
		return
	}
	src := st.sourceBucket(isEncode)
	source := p.content[src]
	version := st.version

	st.busy = true
	op := &Operation{
		Kind:     OpTranslate,
		Brick:    st.brick,
		Bucket:   src,
		IsEncode: isEncode,
		Content:  source,
	}
	p.logger.Debug("translate",
		"brick", st.brick.Name(),
		"direction", op.Direction(),
		"bucket", src,
	)
	p.spawn(op,
		func(ctx context.Context) (*chain.Chain, error) {
			return st.transform.Translate(ctx, source, isEncode)
		},
		func(result *chain.Chain, err error, started time.Time) {
			p.finishTranslation(st, op, source, version, result, err, started)
		},
	)
}

func (p *Pipe) finishTranslation(st *brickState, op *Operation, source *chain.Chain, version int, result *chain.Chain, err error, started time.Time) {
	if p.closed {
		return
	}
	st.busy = false
	isEncode := op.IsEncode
	rec := RunRecord{
		BrickID:   st.brick.ID(),
		BrickName: st.brick.Name(),
		Kind:      OpTranslate,
		IsEncode:  isEncode,
		Started:   started,
		Duration:  time.Since(started),
		Err:       err,
	}

	if st.removed {
		rec.Outcome = OutcomeDiscarded
		p.logger.Warn("discarding result of removed brick",
			"brick", st.brick.Name(),
			"direction", op.Direction(),
		)
		p.runs.add(rec)
		p.finished(st, op, err)
		return
	}

	src, dst := st.sourceBucket(isEncode), st.resultBucket(isEncode)
	reversed := (isEncode && p.selected >= dst) || (!isEncode && p.selected <= dst)

	if reversed {
		rec.Outcome = OutcomeReversed
		p.logger.Debug("selection moved across brick, reversing",
			"brick", st.brick.Name(),
			"direction", op.Direction(),
			"selected", p.selected,
		)
		p.triggerTranslation(st, !isEncode)
	} else {
		rec.Outcome = outcomeOf(err, OutcomeCommitted)
		if err == nil {
			p.setContent(result, dst, st)
		}
		if !p.content[src].Equal(source) || st.version != version {
			rec.Retriggered = true
			p.triggerTranslation(st, isEncode)
		}
	}

	p.runs.add(rec)
	p.finished(st, op, err)
}

func outcomeOf(err error, success Outcome) Outcome {
	switch {
	case err == nil:
		return success
	case IsInvalidInput(err):
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}

// finished reports a completed brick operation and settles waiters.
func (p *Pipe) finished(st *brickState, op *Operation, err error) {
	if err != nil {
		if IsInvalidInput(err) {
			p.logger.Debug("brick rejected input",
				"brick", st.brick.Name(),
				"operation", string(op.Kind),
				"error", err,
			)
			if p.strict {
				p.failures = append(p.failures, err)
			}
		} else {
			p.logger.Error("brick failed",
				"brick", st.brick.Name(),
				"operation", string(op.Kind),
				"error", err,
			)
			p.failures = append(p.failures, err)
			p.emit(func(ext Extension) {
				ext.OnError(err, op, p)
			})
		}
	}
	p.emit(func(ext Extension) {
		ext.OnBrickFinished(op, err)
	})
	p.settle()
}
