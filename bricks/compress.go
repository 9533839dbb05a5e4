package bricks

import (
	"bytes"
	"context"
	"fmt"
	"io"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/cryptii/cryptii-sub001/form"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const CompressName = "compress"

// maxDecompressed bounds the output of a decompression.
const maxDecompressed = 64 << 20

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("bricks: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressed))
	if err != nil {
		panic("bricks: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress compresses bytes with zstd, deflate or lz4 (frame format).
type Compress struct {
	*cryptii.TransformBase
	settings *form.Form
}

func NewCompress() *Compress {
	c := &Compress{
		settings: form.New(
			form.Field{Name: "algorithm", Label: "Algorithm", Kind: form.KindEnum, Elements: []string{"zstd", "deflate", "lz4"}},
		),
	}
	c.TransformBase = cryptii.NewTransformBase(CompressName, c.settings, c)
	return c
}

func (c *Compress) PerformEncode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	if content.Padding() != 0 {
		return nil, chain.InvalidInput("compression requires whole bytes, content has %d padding bits", content.Padding())
	}
	data := content.Bytes()

	switch c.settings.String("algorithm") {
	case "deflate":
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("deflate compress: %w", err)
		}
		return chain.FromBytes(buf.Bytes()), nil

	case "lz4":
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return chain.FromBytes(buf.Bytes()), nil

	default:
		return chain.FromBytes(zstdEncoder.EncodeAll(data, nil)), nil
	}
}

func (c *Compress) PerformDecode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	data := content.Bytes()
	algorithm := c.settings.String("algorithm")

	var r io.Reader
	switch algorithm {
	case "deflate":
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		r = fr
	case "lz4":
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, chain.InvalidInput("malformed zstd data: %v", err)
		}
		return chain.FromBytes(out), nil
	}

	out, err := io.ReadAll(io.LimitReader(r, maxDecompressed+1))
	if err != nil {
		return nil, chain.InvalidInput("malformed %s data: %v", algorithm, err)
	}
	if len(out) > maxDecompressed {
		return nil, chain.InvalidInput("decompressed %s data exceeds %d bytes", algorithm, maxDecompressed)
	}
	return chain.FromBytes(out), nil
}
