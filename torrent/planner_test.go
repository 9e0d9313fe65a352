package torrent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeSessionWithBitfield(numPieces int, has ...int) *PeerSession {
	bf := NewBitfield(numPieces)
	for _, i := range has {
		bf.Set(i)
	}
	return &PeerSession{state: StateActive, Bitfield: bf}
}

func testMetainfo(numPieces int, pieceLength int64) *Metainfo {
	pieces := make([]byte, numPieces*PieceHashLen)
	for i := 0; i < numPieces; i++ {
		pieces[i*PieceHashLen] = byte(i + 1) // distinguish hashes
	}
	return &Metainfo{
		File: TorrentFile{
			Info: TorrentInfo{
				PieceLength: pieceLength,
				Pieces:      string(pieces),
				Name:        "test",
				Length:      pieceLength * int64(numPieces),
			},
		},
	}
}

func TestPlannerRarestFirstOrdering(t *testing.T) {
	r := require.New(t)

	meta := testMetainfo(3, 1<<14)
	// piece 0: both sessions have it (common)
	// piece 1: only session B has it (rare)
	// piece 2: neither has it (unavailable)
	sessA := fakeSessionWithBitfield(3, 0)
	sessB := fakeSessionWithBitfield(3, 0, 1)

	planner, err := NewPlanner(meta, []*PeerSession{sessA, sessB})
	r.NoError(err)

	r.Equal([]int{2}, planner.Unavailable())
	r.Equal(2, planner.Remaining())

	first, ok := planner.Pop()
	r.True(ok)
	r.Equal(1, first.Index) // rarest (1 provider) before piece 0 (2 providers)
	r.Equal([]int{1}, first.Providers)

	second, ok := planner.Pop()
	r.True(ok)
	r.Equal(0, second.Index)
	r.ElementsMatch([]int{0, 1}, second.Providers)

	_, ok = planner.Pop()
	r.False(ok)
}

func TestPlannerRefreshPicksUpNewHave(t *testing.T) {
	r := require.New(t)

	meta := testMetainfo(2, 1<<14)
	sess := fakeSessionWithBitfield(2) // has nothing yet

	planner, err := NewPlanner(meta, []*PeerSession{sess})
	r.NoError(err)
	r.Equal([]int{0, 1}, planner.Unavailable())
	r.Equal(0, planner.Remaining())

	sess.Bitfield.Set(0)
	planner.Refresh([]*PeerSession{sess})

	r.Equal(1, planner.Remaining())
	r.Equal([]int{1}, planner.Unavailable())
}

func TestPlannerIgnoresNonActiveSessions(t *testing.T) {
	r := require.New(t)

	meta := testMetainfo(1, 1<<14)
	sess := fakeSessionWithBitfield(1, 0)
	sess.state = StateClosed

	planner, err := NewPlanner(meta, []*PeerSession{sess})
	r.NoError(err)
	r.Equal([]int{0}, planner.Unavailable())
}
