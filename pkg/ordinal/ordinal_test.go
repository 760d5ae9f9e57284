package ordinal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type color int

const (
	red color = iota
	green
	blue
)

var colors = NewTable("color",
	Entry[color]{red, 0},
	Entry[color]{green, 1},
	Entry[color]{blue, 7},
)

func TestTable_RoundTrip(t *testing.T) {
	for _, v := range []color{red, green, blue} {
		o, err := colors.Encode(v)
		require.NoError(t, err)
		got, err := colors.Decode(int64(o))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestTable_DecodeUnknown(t *testing.T) {
	for _, n := range []int64{2, 6, 8, 255, 256, -1} {
		_, err := colors.Decode(n)
		var unknown *UnknownOrdinalError
		require.True(t, errors.As(err, &unknown), "ordinal %d", n)
		assert.Equal(t, "color", unknown.Enum)
		assert.Equal(t, n, unknown.Value)
	}
}

func TestTable_EncodeUnknownVariant(t *testing.T) {
	_, err := colors.Encode(color(42))
	var unknown *UnknownVariantError
	require.ErrorAs(t, err, &unknown)
}

func TestTable_JSON(t *testing.T) {
	b, err := colors.MarshalJSON(blue)
	require.NoError(t, err)
	assert.Equal(t, "7", string(b))

	v, err := colors.UnmarshalJSON([]byte(" 1 "))
	require.NoError(t, err)
	assert.Equal(t, green, v)

	for _, in := range []string{`"green"`, `null`, `1.5`, `{}`} {
		_, err := colors.UnmarshalJSON([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestNewTable_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewTable("dup", Entry[color]{red, 0}, Entry[color]{green, 0})
	})
	assert.Panics(t, func() {
		NewTable("dup", Entry[color]{red, 0}, Entry[color]{red, 1})
	})
}
