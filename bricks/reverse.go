package bricks

import (
	"context"
	"slices"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
)

const ReverseName = "reverse"

// Reverse reverses text by code point and binary content by byte.
type Reverse struct {
	*cryptii.TransformBase
}

func NewReverse() *Reverse {
	r := &Reverse{}
	r.TransformBase = cryptii.NewTransformBase(ReverseName, nil, r)
	return r
}

func (r *Reverse) PerformEncode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	if content.IsText() {
		codePoints, err := content.CodePoints()
		if err != nil {
			return nil, err
		}
		slices.Reverse(codePoints)
		return chain.FromCodePoints(codePoints)
	}
	if content.Padding() != 0 {
		return nil, chain.InvalidInput("cannot reverse content with %d padding bits", content.Padding())
	}
	b := content.Bytes()
	slices.Reverse(b)
	return chain.FromBytes(b), nil
}

func (r *Reverse) PerformDecode(ctx context.Context, content *chain.Chain) (*chain.Chain, error) {
	return r.PerformEncode(ctx, content)
}
