package bricks

import (
	"context"
	"encoding/base64"
	"strings"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/cryptii/cryptii-sub001/form"
)

const Base64Name = "base64"

var base64Variants = map[string]*base64.Encoding{
	"standard": base64.StdEncoding,
	"url":      base64.URLEncoding,
	"raw":      base64.RawStdEncoding,
}

// Base64 encodes bytes as base64 text.
type Base64 struct {
	*cryptii.TransformBase
	settings *form.Form
}

func NewBase64() *Base64 {
	b := &Base64{
		settings: form.New(
			form.Field{Name: "variant", Label: "Variant", Kind: form.KindEnum, Elements: []string{"standard", "url", "raw"}},
		),
	}
	b.TransformBase = cryptii.NewTransformBase(Base64Name, b.settings, b)
	return b
}

func (b *Base64) encoding() *base64.Encoding {
	return base64Variants[b.settings.String("variant")]
}

func (b *Base64) PerformEncode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	if content.Padding() != 0 {
		return nil, chain.InvalidInput("base64 requires whole bytes, content has %d padding bits", content.Padding())
	}
	return chain.FromString(b.encoding().EncodeToString(content.Bytes())), nil
}

func (b *Base64) PerformDecode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	text, err := content.Text()
	if err != nil {
		return nil, err
	}
	data, err := b.encoding().DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return nil, chain.InvalidInput("malformed base64: %v", err)
	}
	return chain.FromBytes(data), nil
}
