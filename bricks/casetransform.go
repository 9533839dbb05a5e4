package bricks

import (
	"context"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/cryptii/cryptii-sub001/form"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const CaseTransformName = "case-transform"

// CaseTransform maps text to lower, upper or title case using the case
// rules of a language. Case is not recoverable, so decoding lowercases.
type CaseTransform struct {
	*cryptii.TransformBase
	settings *form.Form
}

func NewCaseTransform() *CaseTransform {
	c := &CaseTransform{
		settings: form.New(
			form.Field{Name: "case", Label: "Case", Kind: form.KindEnum, Elements: []string{"lower", "upper", "title"}},
			form.Field{Name: "language", Label: "Language", Kind: form.KindText, Default: "und", Rules: "required,bcp47_language_tag"},
		),
	}
	c.TransformBase = cryptii.NewTransformBase(CaseTransformName, c.settings, c)
	return c
}

func (c *CaseTransform) tag() (language.Tag, error) {
	tag, err := language.Parse(c.settings.String("language"))
	if err != nil {
		return language.Und, chain.InvalidInput("unknown language %q", c.settings.String("language"))
	}
	return tag, nil
}

func (c *CaseTransform) PerformEncode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	text, err := content.Text()
	if err != nil {
		return nil, err
	}
	tag, err := c.tag()
	if err != nil {
		return nil, err
	}
	var caser cases.Caser
	switch c.settings.String("case") {
	case "upper":
		caser = cases.Upper(tag)
	case "title":
		caser = cases.Title(tag)
	default:
		caser = cases.Lower(tag)
	}
	return chain.FromString(caser.String(text)), nil
}

func (c *CaseTransform) PerformDecode(_ context.Context, content *chain.Chain) (*chain.Chain, error) {
	text, err := content.Text()
	if err != nil {
		return nil, err
	}
	tag, err := c.tag()
	if err != nil {
		return nil, err
	}
	return chain.FromString(cases.Lower(tag).String(text)), nil
}
