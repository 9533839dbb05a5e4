package cryptii

import (
	"context"
	"time"

	"github.com/cryptii/cryptii-sub001/chain"
)

// TransformBrick converts content between its lower and upper bucket.
type TransformBrick interface {
	Brick
	// Translate encodes (lower to upper) or decodes (upper to lower).
	Translate(ctx context.Context, content *chain.Chain, isEncode bool) (*chain.Chain, error)
	Reversed() bool
	SetReversed(reversed bool)
	EncodeOnly() bool
	LastRun() (TranslationStats, bool)
	LastError() error
}

// Codec is the algorithm behind a transform brick.
type Codec interface {
	PerformEncode(ctx context.Context, content *chain.Chain) (*chain.Chain, error)
	PerformDecode(ctx context.Context, content *chain.Chain) (*chain.Chain, error)
}

// TranslationStats describes the last completed translation of a brick.
type TranslationStats struct {
	IsEncode  bool
	Duration  time.Duration
	ByteCount int
	CharCount int
}

// TransformBase implements TransformBrick on top of a Codec. Concrete
// transforms embed it and implement Codec themselves:
//
//	type Reverse struct{ *cryptii.TransformBase }
//
//	func NewReverse() *Reverse {
//	    r := &Reverse{}
//	    r.TransformBase = cryptii.NewTransformBase("reverse", nil, r)
//	    return r
//	}
type TransformBase struct {
	*Base
	codec Codec

	reversed bool
	lastRun  *TranslationStats
	lastErr  error
}

// NewTransformBase creates the base of a transform brick.
func NewTransformBase(name string, settings Form, codec Codec, opts ...BrickOption) *TransformBase {
	return &TransformBase{
		Base:  newBase(name, KindTransform, settings, opts),
		codec: codec,
	}
}

// Translate validates the settings, applies the reverse flag and runs the
// codec. Stats and the last error are recorded for introspection.
func (t *TransformBase) Translate(ctx context.Context, content *chain.Chain, isEncode bool) (*chain.Chain, error) {
	if invalid := t.settings.InvalidFields(); len(invalid) > 0 {
		return nil, t.fail(chain.InvalidFields(invalid))
	}
	if t.Reversed() {
		isEncode = !isEncode
	}
	if !isEncode && t.encodeOnly {
		return nil, t.fail(chain.InvalidInput("%s can only encode", t.name))
	}

	start := time.Now()
	var (
		result *chain.Chain
		err    error
	)
	if isEncode {
		result, err = t.codec.PerformEncode(ctx, content)
	} else {
		result, err = t.codec.PerformDecode(ctx, content)
	}
	if err != nil {
		return nil, t.fail(err)
	}
	if result == nil {
		result = chain.Empty()
	}

	stats := TranslationStats{IsEncode: isEncode, Duration: time.Since(start)}
	if result.IsText() {
		stats.CharCount, _ = result.Len()
	} else {
		stats.ByteCount = result.Size(8)
	}

	t.mu.Lock()
	t.lastRun = &stats
	t.lastErr = nil
	t.mu.Unlock()
	return result, nil
}

func (t *TransformBase) fail(err error) error {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
	return err
}

// Reversed reports whether encode and decode are swapped.
func (t *TransformBase) Reversed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reversed
}

// SetReversed swaps encode and decode. A change counts as a settings change.
func (t *TransformBase) SetReversed(reversed bool) {
	t.mu.Lock()
	changed := t.reversed != reversed
	t.reversed = reversed
	t.mu.Unlock()
	if changed {
		t.notifySettingsChanged()
	}
}

func (t *TransformBase) EncodeOnly() bool {
	return t.encodeOnly
}

// LastRun returns the stats of the last successful translation.
func (t *TransformBase) LastRun() (TranslationStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastRun == nil {
		return TranslationStats{}, false
	}
	return *t.lastRun, true
}

// LastError returns the error of the last translation, or nil if it
// succeeded.
func (t *TransformBase) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *TransformBase) Serialize() BrickData {
	data := t.serialize()
	data.Reverse = t.Reversed()
	return data
}

func (t *TransformBase) Extract(data BrickData) error {
	if err := t.extract(data); err != nil {
		return err
	}
	t.SetReversed(data.Reverse)
	return nil
}
