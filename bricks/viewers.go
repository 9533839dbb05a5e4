package bricks

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/cryptii/cryptii-sub001/form"
)

const (
	TextViewerName  = "text"
	BytesViewerName = "bytes"
)

// TextViewer shows content as text. Binary content that is not valid UTF-8
// is rejected.
type TextViewer struct {
	*cryptii.DisplayBase

	mu   sync.Mutex
	text string
}

func NewTextViewer() *TextViewer {
	v := &TextViewer{}
	v.DisplayBase = cryptii.NewDisplayBase(TextViewerName, form.New(), v)
	return v
}

func (v *TextViewer) Render(_ context.Context, content *chain.Chain) error {
	s, err := content.Text()
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.text = s
	v.mu.Unlock()
	return nil
}

// Text returns the text last rendered.
func (v *TextViewer) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.text
}

// EditText reports a local edit.
func (v *TextViewer) EditText(s string) error {
	return v.Edit(chain.FromString(s))
}

// BytesViewer shows content as hexadecimal or binary digits.
type BytesViewer struct {
	*cryptii.DisplayBase
	settings *form.Form

	mu        sync.Mutex
	formatted string
}

func NewBytesViewer() *BytesViewer {
	v := &BytesViewer{
		settings: form.New(
			form.Field{Name: "format", Label: "Format", Kind: form.KindEnum, Elements: []string{"hex", "binary"}},
			form.Field{Name: "groupSize", Label: "Group size", Kind: form.KindNumber, Default: 1, Rules: "min=0,max=64"},
		),
	}
	v.DisplayBase = cryptii.NewDisplayBase(BytesViewerName, v.settings, v)
	return v
}

func (v *BytesViewer) Render(_ context.Context, content *chain.Chain) error {
	var digits []string
	b := content.Bytes()
	switch v.settings.String("format") {
	case "binary":
		bits := content.BitLen()
		var sb strings.Builder
		for i := 0; i < bits; i++ {
			sb.WriteByte('0' + (b[i/8]>>(7-i%8))&1)
			if i%8 == 7 || i == bits-1 {
				digits = append(digits, sb.String())
				sb.Reset()
			}
		}
	default:
		for _, c := range b {
			digits = append(digits, fmt.Sprintf("%02x", c))
		}
	}

	group := v.settings.Int("groupSize")
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && group > 0 && i%group == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(d)
	}

	v.mu.Lock()
	v.formatted = sb.String()
	v.mu.Unlock()
	return nil
}

// Formatted returns the content last rendered.
func (v *BytesViewer) Formatted() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.formatted
}

// EditHex reports a local edit given as hexadecimal digits. Whitespace is
// ignored.
func (v *BytesViewer) EditHex(s string) error {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return chain.InvalidInput("malformed hexadecimal input: %v", err)
	}
	return v.Edit(chain.FromBytes(b))
}
