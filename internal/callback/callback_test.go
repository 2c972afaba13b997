package callback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParse(t *testing.T) {
	raw := Encode(Item, "1", "-1")
	assert.Equal(t, "item:1:-1", raw)

	d, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Item, d.Action)

	idx, err := d.Int(0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	delta, err := d.Int(1)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)
	assert.Equal(t, "", d.Arg(5))

	d, err = Parse(Encode(Date, "2026-03-07"))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-07", d.Arg(0))
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", ":x", string(make([]byte, 65))} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}

	d, err := Parse("qty:many")
	require.NoError(t, err)
	_, err = d.Int(0)
	assert.ErrorIs(t, err, ErrMalformed)
}
