package torrent

import "sort"

// PieceDescriptor is one piece's static shape plus the set of currently
// known providers (spec.md §3).
type PieceDescriptor struct {
	Index     int
	Length    int64
	Hash      [20]byte
	Providers []int // indices into the engine's session slice
}

// Planner enumerates a torrent's pieces, tracks which connected peers can
// serve each one, and yields them in rarest-first priority order (spec.md
// §4.4). Pieces with zero providers are set aside as Unavailable rather
// than entering the queue (spec.md §3 invariant: "|providers| ≥ 1 for any
// piece the engine attempts").
//
// Grounded on the teacher's HasPiece-driven piece selection loop in
// DownloadFromPeer (torrent/p2p.go), generalized from "first undownloaded
// piece this peer has" into a proper availability-ordered planner, since
// the teacher has no rarest-first concept at all.
type Planner struct {
	descriptors map[int]*PieceDescriptor
	queue       []int // remaining piece indices, sorted rarest-first then by index
	unavailable []int
}

// NewPlanner builds the initial per-piece provider sets from the given
// sessions' bitfields.
func NewPlanner(meta *Metainfo, sessions []*PeerSession) (*Planner, error) {
	numPieces, err := meta.File.NumPieces()
	if err != nil {
		return nil, err
	}

	p := &Planner{descriptors: make(map[int]*PieceDescriptor, numPieces)}

	for i := 0; i < numPieces; i++ {
		p.descriptors[i] = &PieceDescriptor{
			Index:  i,
			Length: meta.File.PieceLength(i, numPieces),
			Hash:   meta.File.PieceHash(i),
		}
	}

	p.resample(sessions)
	return p, nil
}

// resample recomputes providers for every piece still in the planner
// (queued or unavailable) from the sessions' current bitfields, then
// rebuilds the priority queue. Pieces already popped for fetching are left
// untouched.
func (p *Planner) resample(sessions []*PeerSession) {
	remaining := append(append([]int{}, p.queue...), p.unavailable...)

	p.queue = p.queue[:0]
	p.unavailable = p.unavailable[:0]

	for _, idx := range remaining {
		d := p.descriptors[idx]
		d.Providers = d.Providers[:0]
		for si, s := range sessions {
			if s.State() == StateActive && s.Bitfield.Has(idx) {
				d.Providers = append(d.Providers, si)
			}
		}
		if len(d.Providers) == 0 {
			p.unavailable = append(p.unavailable, idx)
		} else {
			p.queue = append(p.queue, idx)
		}
	}

	sort.Slice(p.queue, func(a, b int) bool {
		da, db := p.descriptors[p.queue[a]], p.descriptors[p.queue[b]]
		if len(da.Providers) != len(db.Providers) {
			return len(da.Providers) < len(db.Providers)
		}
		return da.Index < db.Index // ties broken by ascending index, for determinism
	})
}

// Pop removes and returns the highest-priority (rarest, then lowest index)
// remaining piece. ok is false once the queue is empty.
func (p *Planner) Pop() (PieceDescriptor, bool) {
	if len(p.queue) == 0 {
		return PieceDescriptor{}, false
	}
	idx := p.queue[0]
	p.queue = p.queue[1:]
	return *p.descriptors[idx], true
}

// Refresh resamples provider sets for the remaining queue from the
// sessions' live bitfields — including any Have updates accumulated since
// construction — and re-sorts. Called by the engine between pieces, never
// mid-piece (spec.md §6.3: "availability is sampled only at piece-start").
func (p *Planner) Refresh(sessions []*PeerSession) {
	p.resample(sessions)
}

// Unavailable returns the indices of pieces with no known provider.
func (p *Planner) Unavailable() []int {
	return append([]int{}, p.unavailable...)
}

// Remaining reports how many pieces are still queued.
func (p *Planner) Remaining() int {
	return len(p.queue)
}
