package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"89991234567", "+79991234567"},
		{"79991234567", "+79991234567"},
		{"+79991234567", "+79991234567"},
		{"8 (999) 123-45-67", "+79991234567"},
		{" +7 999 123 45 67 ", "+79991234567"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"12345", "", "+89991234567", "99991234567", "8999123456a", "+7999123456", "899912345678"} {
		_, err := NormalizePhone(bad)
		assert.ErrorIs(t, err, ErrInvalidPhone, bad)
	}
}

func TestParseName(t *testing.T) {
	name, err := ParseName("  Иван   Иванов ")
	require.NoError(t, err)
	assert.Equal(t, "Иван", name.First)
	assert.Equal(t, "Иванов", name.Last)

	for _, bad := range []string{"", "Иван", "Анна Мария Петрова"} {
		_, err := ParseName(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}
