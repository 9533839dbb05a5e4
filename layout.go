package cryptii

import (
	"github.com/cryptii/cryptii-sub001/chain"
)

// brickState is the pipe's per-brick bookkeeping, keyed by brick id.
type brickState struct {
	brick     Brick
	handle    *Handle
	kind      Kind
	transform TransformBrick
	display   DisplayBrick

	// bucket is the bucket of a display or the lower bucket of a transform.
	bucket int

	busy     bool
	version  int
	dragging bool
	removed  bool

	// viewed is the content last handed to a display at viewedVersion.
	viewed        *chain.Chain
	viewedVersion int
}

// bucketSlot lists the bricks attached to a bucket.
type bucketSlot struct {
	// below is the transform whose upper bucket this is.
	below *brickState
	// above is the transform whose lower bucket this is.
	above    *brickState
	displays []*brickState
}

func newBrickState(b Brick) (*brickState, error) {
	st := &brickState{brick: b, kind: b.base().kind}
	switch st.kind {
	case KindTransform:
		t, ok := b.(TransformBrick)
		if !ok {
			return nil, ErrUnknownBrickKind
		}
		st.transform = t
	case KindDisplay:
		d, ok := b.(DisplayBrick)
		if !ok {
			return nil, ErrUnknownBrickKind
		}
		st.display = d
	default:
		return nil, ErrUnknownBrickKind
	}
	return st, nil
}

// relayout recomputes bucket membership from the brick order.
func (p *Pipe) relayout() {
	p.buckets = make([]bucketSlot, countTransforms(p.bricks)+1)
	k := 0
	for _, st := range p.bricks {
		st.bucket = k
		switch st.kind {
		case KindTransform:
			p.buckets[k].above = st
			k++
			p.buckets[k].below = st
		case KindDisplay:
			p.buckets[k].displays = append(p.buckets[k].displays, st)
		}
	}
}

func countTransforms(states []*brickState) int {
	n := 0
	for _, st := range states {
		if st.kind == KindTransform {
			n++
		}
	}
	return n
}

// sourceBucket is the bucket a translation reads from.
func (st *brickState) sourceBucket(isEncode bool) int {
	if isEncode {
		return st.bucket
	}
	return st.bucket + 1
}

// resultBucket is the bucket a translation writes to.
func (st *brickState) resultBucket(isEncode bool) int {
	if isEncode {
		return st.bucket + 1
	}
	return st.bucket
}

func removeElement[T comparable](slice []T, item T) []T {
	for i, existing := range slice {
		if existing == item {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}
