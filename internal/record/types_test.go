package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrimitiveTypeAcceptsBothSpellings(t *testing.T) {
	cases := map[string]PrimitiveType{
		"Int32":    Int32,
		"INT":      Int32,
		"BigInt":   Int64,
		"Boolean":  Bool,
		"double":   Float64,
		"Decimal":  Decimal,
		"DateTime": DateTime,
		"VARCHAR":  String,
		"Blob":     Blob,
	}
	for s, want := range cases {
		got, err := ParsePrimitiveType(s)
		require.NoError(t, err)
		require.Equal(t, want, got, s)
	}
}

func TestParsePrimitiveTypeRejectsUnknown(t *testing.T) {
	_, err := ParsePrimitiveType("Nonsense")
	require.Error(t, err)
}

func TestFixedWidthMetadata(t *testing.T) {
	require.True(t, Int32.IsFixedWidth())
	require.False(t, String.IsFixedWidth())
	require.Equal(t, 4, Int32.FixedWidth())
	require.Equal(t, 16, Decimal.FixedWidth())
	require.Panics(t, func() { String.FixedWidth() })
}
