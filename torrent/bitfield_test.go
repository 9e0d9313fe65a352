package torrent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitfieldHasSet(t *testing.T) {
	r := require.New(t)

	bf := NewBitfield(10)
	r.False(bf.Has(0))
	r.False(bf.Has(9))

	bf.Set(0)
	bf.Set(9)
	r.True(bf.Has(0))
	r.True(bf.Has(9))
	r.False(bf.Has(1))
}

func TestBitfieldHasOutOfRange(t *testing.T) {
	r := require.New(t)

	var bf Bitfield
	r.False(bf.Has(0))
	r.False(bf.Has(-1))

	bf = NewBitfield(4)
	r.False(bf.Has(100))
}

func TestBitfieldIterPieces(t *testing.T) {
	r := require.New(t)

	bf := NewBitfield(12)
	bf.Set(0)
	bf.Set(3)
	bf.Set(11)

	r.Equal([]int{0, 3, 11}, bf.IterPieces(12))
}

func TestBitfieldBitOrderScenario(t *testing.T) {
	r := require.New(t)

	bf := Bitfield{0b10101010, 0b01010101}
	want := []int{0, 2, 4, 6, 9, 11, 13, 15}

	for i := 0; i < 16; i++ {
		expected := false
		for _, w := range want {
			if w == i {
				expected = true
				break
			}
		}
		r.Equal(expected, bf.Has(i), "bit %d", i)
	}

	r.Equal(want, bf.IterPieces(16))
}

func TestBitfieldIterPiecesIgnoresPadding(t *testing.T) {
	r := require.New(t)

	// a single byte holds 8 bits; numPieces=5 should never report bits 5-7
	// even if a misbehaving peer sets them.
	bf := Bitfield{0xFF}
	r.Equal([]int{0, 1, 2, 3, 4}, bf.IterPieces(5))
}
