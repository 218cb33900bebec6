package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		data     uint64
		ordinal  uint64
		category uint64
		version  uint64
	}{
		{"all zero", 0, 0, 0, 0},
		{"typical mint", 4, 1, 2, 4},
		{"max data", MaxData, 1, 1, 1},
		{"max ordinal", 0, MaxOrdinal, 0, 0},
		{"max category", 0, 0, MaxCategory, 0},
		{"max version", 0, 0, 0, MaxVersion},
		{"all max", MaxData, MaxOrdinal, MaxCategory, MaxVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Encode(tt.data, tt.ordinal, tt.category, tt.version)
			require.NoError(t, err)

			assert.Equal(t, tt.data, id.Data())
			assert.Equal(t, tt.ordinal, id.Ordinal())
			assert.Equal(t, tt.category, id.Category())
			assert.Equal(t, tt.version, id.Version())
		})
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		data     uint64
		ordinal  uint64
		category uint64
		version  uint64
	}{
		{"data over width", MaxData + 1, 0, 0, 0},
		{"ordinal over width", 0, MaxOrdinal + 1, 0, 0},
		{"category over width", 0, 0, MaxCategory + 1, 0},
		{"version over width", 0, 0, 0, MaxVersion + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.data, tt.ordinal, tt.category, tt.version)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestDistinctTuplesDistinctTokens(t *testing.T) {
	a, err := Encode(0, 1, 2, 4)
	require.NoError(t, err)
	b, err := Encode(1, 1, 2, 4)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncodeStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"single char", "a"},
		{"max length", "1234567"},
		{"contains padding byte", "a\x00b"},
		{"trailing zero bytes", "ab\x00\x00"},
		{"all zero bytes", "\x00\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := EncodeString(tt.in)
			require.NoError(t, err)

			out, err := DecodeString(packed)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestEncodeStringTooLong(t *testing.T) {
	_, err := EncodeString("12345678")
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestDecodeStringBadLength(t *testing.T) {
	_, err := DecodeString(uint64(MaxStringLen+1) << (8 * MaxStringLen))
	assert.ErrorIs(t, err, ErrOutOfRange)
}
