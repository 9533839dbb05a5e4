package chain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringRepresentations(t *testing.T) {
	c := FromString("héllo")

	assert.True(t, c.IsText())
	assert.Equal(t, []byte("héllo"), c.Bytes())

	cps, err := c.CodePoints()
	require.NoError(t, err)
	assert.Equal(t, []rune{'h', 'é', 'l', 'l', 'o'}, cps)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 6, c.Size(8))
	assert.Equal(t, 48, c.BitLen())
}

func TestFromStringInvalidUTF8FallsBackToBytes(t *testing.T) {
	c := FromString("a\xffb")
	assert.False(t, c.IsText())
	_, err := c.Text()
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
}

func TestFromCodePointsRejectsSurrogates(t *testing.T) {
	_, err := FromCodePoints([]rune{'a', 0xD800})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))

	c, err := FromCodePoints([]rune{'a', 'b'})
	require.NoError(t, err)
	s, err := c.Text()
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
}

func TestPaddedChainIsNeverText(t *testing.T) {
	c, err := FromBits([]byte{0x61}, 1)
	require.NoError(t, err)

	_, err = c.CodePoints()
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "padding")
}

func TestFromBitsNormalizesPadding(t *testing.T) {
	c, err := FromBits([]byte{0xAB, 0xFF}, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xF8}, c.Bytes())
	assert.Equal(t, 13, c.BitLen())
	assert.Equal(t, 2, c.Size(8))
	assert.Equal(t, 4, c.Size(4))

	_, err = FromBits([]byte{0x00}, 8)
	require.Error(t, err)
	_, err = FromBits(nil, 2)
	require.Error(t, err)
}

func TestMalformedUTF8ReportsOffset(t *testing.T) {
	c := FromBytes([]byte{'o', 'k', 0xC3})
	_, err := c.Text()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte 2")
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *Chain
		want bool
	}{
		{"same text", FromString("abc"), FromString("abc"), true},
		{"text vs code points", FromString("abc"), mustCodePoints(t, "abc"), true},
		{"text vs bytes", FromString("abc"), FromBytes([]byte("abc")), true},
		{"different text", FromString("abc"), FromString("abd"), false},
		{"different padding", mustBits(t, []byte{0x80}, 1), mustBits(t, []byte{0x80}, 2), false},
		{"normalized padding", mustBits(t, []byte{0x81}, 1), mustBits(t, []byte{0x80}, 1), true},
		{"empty", Empty(), FromString(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestSubstr(t *testing.T) {
	c := FromString("abcdef")

	sub, err := c.Substr(1, 3)
	require.NoError(t, err)
	assert.True(t, sub.Equal(FromString("bcd")))

	sub, err = c.Substr(-2, 10)
	require.NoError(t, err)
	assert.True(t, sub.Equal(FromString("ef")))

	sub, err = c.Substr(10, 2)
	require.NoError(t, err)
	assert.True(t, sub.IsEmpty())
}

func TestSplitAndCase(t *testing.T) {
	parts, err := FromString("a,b,,c").Split(",")
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.True(t, parts[2].IsEmpty())

	upper, err := FromString("àbc").ToUpper()
	require.NoError(t, err)
	s, _ := upper.Text()
	assert.Equal(t, "ÀBC", s)

	lower, err := FromString("ÀB").ToLower()
	require.NoError(t, err)
	s, _ = lower.Text()
	assert.Equal(t, "àb", s)
}

func TestContains(t *testing.T) {
	assert.True(t, FromString("hello world").Contains(FromString("o w")))
	assert.False(t, FromString("hello").Contains(FromString("z")))
	assert.True(t, FromBytes([]byte{1, 2, 3}).Contains(FromBytes([]byte{2, 3})))
}

func TestJoinText(t *testing.T) {
	a, b, c := FromString("x"), FromString("yy"), FromString("zzz")
	joined := Join([]*Chain{a, b, c}, nil)
	assert.True(t, joined.IsText())
	s, err := joined.Text()
	require.NoError(t, err)
	assert.Equal(t, "xyyzzz", s)

	withSep := Join([]*Chain{a, b}, FromString("-"))
	s, _ = withSep.Text()
	assert.Equal(t, "x-yy", s)
}

func TestJoinCarriesPadding(t *testing.T) {
	// 1010 (4 bits) + 11 (2 bits) + 1 byte 0xFF
	a := mustBits(t, []byte{0xA0}, 4)
	b := mustBits(t, []byte{0xC0}, 6)
	c := FromBytes([]byte{0xFF})

	joined := Join([]*Chain{a, b, c}, nil)
	assert.False(t, joined.IsText())
	assert.Equal(t, 14, joined.BitLen())
	assert.Equal(t, 2, joined.Padding())
	assert.Equal(t, []byte{0xAF, 0xFC}, joined.Bytes())
}

func TestJoinAlignedBinary(t *testing.T) {
	joined := Join([]*Chain{FromBytes([]byte{1}), FromString("A")}, FromBytes([]byte{0}))
	assert.Equal(t, []byte{1, 0, 'A'}, joined.Bytes())
	assert.Equal(t, 0, joined.Padding())
}

func TestSerializeRoundTrip(t *testing.T) {
	for padding := 0; padding <= 7; padding++ {
		original := mustBits(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, padding)

		restored, err := Extract(original.Serialize())
		require.NoError(t, err)
		assert.True(t, original.Equal(restored), "padding %d", padding)

		raw, err := json.Marshal(original)
		require.NoError(t, err)
		restored, err = ExtractJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, original.Bytes(), restored.Bytes())
		assert.Equal(t, padding, restored.Padding())
	}
}

func TestSerializeText(t *testing.T) {
	raw, err := json.Marshal(FromString("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `"hi"`, string(raw))

	raw, err = json.Marshal(FromBytes([]byte{0xFF}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":"/w=="}`, string(raw))
}

func TestExtractMalformed(t *testing.T) {
	_, err := Extract(map[string]any{"padding": 1.0})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Extract(map[string]any{"data": "!!", "padding": 0.0})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Extract(map[string]any{"data": "AA==", "padding": 9.0})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Extract(42)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDescribeIsBounded(t *testing.T) {
	long := FromString(strings.Repeat("a", 1000))
	assert.Less(t, len(long.Describe()), 100)
	assert.Contains(t, long.Describe(), "1000 chars")

	bin := FromBytes(make([]byte, 1000))
	assert.Less(t, len(bin.String()), 100)
	assert.Contains(t, bin.String(), "1000 bytes")
}

func mustBits(t *testing.T, b []byte, padding int) *Chain {
	t.Helper()
	c, err := FromBits(b, padding)
	require.NoError(t, err)
	return c
}

func mustCodePoints(t *testing.T, s string) *Chain {
	t.Helper()
	c, err := FromCodePoints([]rune(s))
	require.NoError(t, err)
	return c
}
