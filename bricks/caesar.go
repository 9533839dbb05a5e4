package bricks

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/cryptii/cryptii-sub001/form"
)

const CaesarCipherName = "caesar-cipher"

const defaultAlphabet = "abcdefghijklmnopqrstuvwxyz"

// CaesarCipher shifts every alphabet character by a fixed amount.
type CaesarCipher struct {
	*cryptii.TransformBase
	settings *form.Form
}

func NewCaesarCipher() *CaesarCipher {
	c := &CaesarCipher{
		settings: form.New(
			form.Field{Name: "shift", Label: "Shift", Kind: form.KindNumber, Default: 7, Rules: "min=1,max=25"},
			form.Field{Name: "alphabet", Label: "Alphabet", Kind: form.KindText, Default: defaultAlphabet, Rules: "required,min=2"},
			form.Field{Name: "caseStrategy", Label: "Case", Kind: form.KindEnum, Elements: []string{"maintain", "ignore"}},
			form.Field{Name: "includeForeignChars", Label: "Foreign chars", Kind: form.KindBoolean, Default: true},
		),
	}
	c.TransformBase = cryptii.NewTransformBase(CaesarCipherName, c.settings, c,
		cryptii.WithSettingObserver(c.settingChanged),
	)
	return c
}

// settingChanged keeps the shift range within the alphabet.
func (c *CaesarCipher) settingChanged(name string, value any) {
	if name != "alphabet" {
		return
	}
	alphabet, _ := value.(string)
	n := len([]rune(alphabet))
	c.settings.SetRules("shift", fmt.Sprintf("min=1,max=%d", max(1, n-1)))
}

func (c *CaesarCipher) PerformEncode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	return c.shift(content, c.settings.Int("shift"))
}

func (c *CaesarCipher) PerformDecode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	return c.shift(content, -c.settings.Int("shift"))
}

func (c *CaesarCipher) shift(content *chain.Chain, shift int) (*chain.Chain, error) {
	text, err := content.Text()
	if err != nil {
		return nil, err
	}
	alphabet := []rune(strings.ToLower(c.settings.String("alphabet")))
	index := make(map[rune]int, len(alphabet))
	for i, r := range alphabet {
		if _, dup := index[r]; dup {
			return nil, chain.InvalidInput("alphabet contains %q more than once", r)
		}
		index[r] = i
	}
	n := len(alphabet)
	maintain := c.settings.String("caseStrategy") == "maintain"
	foreign := c.settings.Bool("includeForeignChars")

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		lower := unicode.ToLower(r)
		i, ok := index[lower]
		if !ok {
			if foreign {
				sb.WriteRune(r)
			}
			continue
		}
		out := alphabet[((i+shift)%n+n)%n]
		if maintain && unicode.IsUpper(r) {
			out = unicode.ToUpper(out)
		}
		sb.WriteRune(out)
	}
	return chain.FromString(sb.String()), nil
}
