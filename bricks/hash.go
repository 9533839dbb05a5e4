package bricks

import (
	"context"
	"crypto/sha256"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/cryptii/cryptii-sub001/form"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const HashName = "hash"

var hashAlgorithms = map[string]func([]byte) [32]byte{
	"blake3":      blake3.Sum256,
	"sha3-256":    sha3.Sum256,
	"blake2b-256": blake2b.Sum256,
	"sha256":      sha256.Sum256,
}

// Hash computes a 256 bit digest of its input. It cannot decode.
type Hash struct {
	*cryptii.TransformBase
	settings *form.Form
}

func NewHash() *Hash {
	h := &Hash{
		settings: form.New(
			form.Field{Name: "algorithm", Label: "Algorithm", Kind: form.KindEnum, Elements: []string{"blake3", "sha3-256", "blake2b-256", "sha256"}},
		),
	}
	h.TransformBase = cryptii.NewTransformBase(HashName, h.settings, h, cryptii.WithEncodeOnly())
	return h
}

func (h *Hash) PerformEncode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	if content.Padding() != 0 {
		return nil, chain.InvalidInput("hashing requires whole bytes, content has %d padding bits", content.Padding())
	}
	sum := hashAlgorithms[h.settings.String("algorithm")](content.Bytes())
	return chain.FromBytes(sum[:]), nil
}

func (h *Hash) PerformDecode(context.Context, *chain.Chain) (*chain.Chain, error) {
	return nil, chain.InvalidInput("hash functions cannot be decoded")
}
