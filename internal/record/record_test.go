package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordEquality(t *testing.T) {
	a := NewRecord(NewInt32(1), NewString("x"))
	b := NewRecord(NewInt32(1), NewString("x"))
	c := NewRecord(NewInt32(1), NewString("y"))

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestKeyCompareLexicographic(t *testing.T) {
	// Composite key ordering (spec.md §8 scenario 4): ("Eng", 101) <
	// ("HR", 20) < ("Sales", 50) < ("Sales", 52) < ("Support", 80).
	keys := []Key{
		NewKey(NewString("Sales"), NewInt32(50)),
		NewKey(NewString("Eng"), NewInt32(101)),
		NewKey(NewString("Sales"), NewInt32(52)),
		NewKey(NewString("HR"), NewInt32(20)),
		NewKey(NewString("Support"), NewInt32(80)),
	}
	want := []Key{
		NewKey(NewString("Eng"), NewInt32(101)),
		NewKey(NewString("HR"), NewInt32(20)),
		NewKey(NewString("Sales"), NewInt32(50)),
		NewKey(NewString("Sales"), NewInt32(52)),
		NewKey(NewString("Support"), NewInt32(80)),
	}

	sorted := append([]Key(nil), keys...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			c, err := sorted[j].Compare(sorted[j-1])
			require.NoError(t, err)
			if c >= 0 {
				break
			}
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	for i := range want {
		require.True(t, want[i].Equal(sorted[i]), "position %d: want %+v got %+v", i, want[i], sorted[i])
	}
}

func TestKeyCompareArityMismatch(t *testing.T) {
	a := NewKey(NewInt32(1))
	b := NewKey(NewInt32(1), NewInt32(2))
	_, err := a.Compare(b)
	require.Error(t, err)
}

func TestKeyEqualTreatsTypeMismatchAsNotEqual(t *testing.T) {
	a := NewKey(NewInt32(1))
	b := NewKey(NewInt64(1))
	require.False(t, a.Equal(b))
}
