package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDataValueEquality(t *testing.T) {
	require.True(t, NewInt32(5).Equal(NewInt32(5)))
	require.False(t, NewInt32(5).Equal(NewInt32(6)))
	require.False(t, NewInt32(5).Equal(NewInt64(5)))

	require.True(t, Null(Int32).Equal(Null(Int32)), "two NULLs of the same type are equal")
	require.False(t, Null(Int32).Equal(NewInt32(0)))

	require.True(t, NewBlob([]byte{1, 2, 3}).Equal(NewBlob([]byte{1, 2, 3})))
	require.False(t, NewBlob([]byte{1, 2, 3}).Equal(NewBlob([]byte{1, 2, 4})))
}

func TestDataValueCompareOrdering(t *testing.T) {
	c, err := NewInt32(1).Compare(NewInt32(2))
	require.NoError(t, err)
	require.Negative(t, c)

	c, err = NewBool(false).Compare(NewBool(true))
	require.NoError(t, err)
	require.Negative(t, c, "false < true")

	c, err = Null(String).Compare(NewString("a"))
	require.NoError(t, err)
	require.Negative(t, c, "NULL sorts below any non-NULL")

	c, err = NewString("a").Compare(Null(String))
	require.NoError(t, err)
	require.Positive(t, c)

	c, err = Null(Int64).Compare(Null(Int64))
	require.NoError(t, err)
	require.Zero(t, c)

	_, err = NewInt32(1).Compare(NewInt64(1))
	require.Error(t, err, "mismatched types in key comparison must fail")
}

func TestDataValueCompareStringsAndBlobsByBytes(t *testing.T) {
	c, err := NewString("abc").Compare(NewString("abd"))
	require.NoError(t, err)
	require.Negative(t, c)

	c, err = NewBlob([]byte{0x01}).Compare(NewBlob([]byte{0x02}))
	require.NoError(t, err)
	require.Negative(t, c)
}

func TestDataValueCompareDateTime(t *testing.T) {
	earlier := NewDateTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	later := NewDateTime(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	c, err := earlier.Compare(later)
	require.NoError(t, err)
	require.Negative(t, c)
}

func TestDataValueHashIsContentBased(t *testing.T) {
	require.Equal(t, NewString("x").Hash(), NewString("x").Hash())
	require.NotEqual(t, NewString("x").Hash(), NewString("y").Hash())
	require.Equal(t, NewBlob([]byte{1, 2}).Hash(), NewBlob([]byte{1, 2}).Hash())
}

func TestDataValueTypedAccessorPanicsOnMismatch(t *testing.T) {
	require.Panics(t, func() { NewInt32(1).Str() })
	require.Panics(t, func() { NewString("x").Int32() })
}
