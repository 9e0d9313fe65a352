package torrent

import (
	"crypto/sha1"
	"sync"

	"bittorrent/torrent/tlog"
)

// Engine is the download_all coordinator of spec.md §4.5: it acquires
// peers, plans piece order, and runs the per-piece scatter/gather loop
// strictly in priority order, committing each piece to a DownloadedBuffer
// only after hash verification.
//
// Grounded on the teacher's StartDownload (torrent/p2p.go), which also
// coordinates tracker query → peer connect → per-peer download loop →
// buffer assembly, but fans work out per-peer-owns-a-subset-of-pieces
// rather than per-piece-scatter-across-peers; this Engine inverts that to
// match spec.md §4.5's per-piece work-stealing scheduler.
type Engine struct {
	Config  EngineConfig
	Tracker *TrackerClient
	Log     *tlog.Logger

	// Progress, if set, is invoked after each piece commits; it is not
	// invoked when the run aborts. It drives the CLI's progress bar (SPEC_FULL.md §11,
	// github.com/schollz/progressbar/v3 wiring lives in main.go).
	Progress func(completedPieces, totalPieces int, pieceBytes int64)
}

// NewEngine builds an Engine with its tracker client derived from cfg's
// timeout.
func NewEngine(cfg EngineConfig, log *tlog.Logger) *Engine {
	if log == nil {
		log = tlog.Nop()
	}
	return &Engine{
		Config:  cfg,
		Tracker: NewTrackerClient(cfg.TrackerTimeout, log),
		Log:     log,
	}
}

// DownloadAll is the engine's entry contract (spec.md §4.5): acquire
// peers, plan pieces, fetch every piece strictly in priority order, and
// return the fully assembled, hash-verified content.
func (e *Engine) DownloadAll(meta *Metainfo) (*DownloadedBuffer, error) {
	numPieces, err := meta.File.NumPieces()
	if err != nil {
		return nil, err
	}

	sessions, err := e.acquirePeers(meta, numPieces)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, s := range sessions {
			if s.State() != StateClosed {
				s.Close()
			}
		}
	}()

	planner, err := NewPlanner(meta, sessions)
	if err != nil {
		return nil, err
	}

	buf := NewDownloadedBuffer(meta.File.TotalLength(), meta.File.Info.PieceLength)
	completed := 0

	for {
		piece, ok := planner.Pop()
		if !ok {
			break
		}

		e.Log.PieceStart(piece.Index, len(piece.Providers))

		data, err := e.fetchPiece(piece, sessions)
		if err != nil {
			return nil, err
		}

		sum := sha1.Sum(data)
		if sum != piece.Hash {
			e.Log.PieceHashMismatch(piece.Index)
			return nil, &Error{Kind: KindHashMismatch, Index: piece.Index, Message: "piece failed verification"}
		}

		if err := buf.CommitPiece(piece.Index, data); err != nil {
			return nil, err
		}
		e.Log.PieceVerified(piece.Index, len(data))

		completed++
		if e.Progress != nil {
			e.Progress(completed, numPieces, int64(len(data)))
		}

		// Re-sample availability before the next pop, picking up any Have
		// updates peers sent while this piece was in flight (SPEC_FULL.md
		// §12; spec.md §6.3 allows sampling only at piece-start).
		planner.Refresh(sessions)
	}

	if unavailable := planner.Unavailable(); len(unavailable) > 0 {
		return nil, &Error{Kind: KindUnavailable, Message: "pieces with no provider remain", Index: unavailable[0]}
	}

	return buf, nil
}

// acquirePeers implements spec.md §4.5 Phase 1: query the tracker, then
// concurrently dial peers with a bounded in-flight limit, stopping once
// TargetActiveSessions are Active or the candidate list is exhausted.
func (e *Engine) acquirePeers(meta *Metainfo, numPieces int) ([]*PeerSession, error) {
	peerIDStr := GeneratePeerID(e.Config.PeerIDPrefix)
	var peerID [20]byte
	copy(peerID[:], peerIDStr)

	list, err := e.Tracker.Query(meta.File.Announce, meta.InfoHash, peerIDStr, e.Config.Port, meta.File.TotalLength())
	if err != nil {
		return nil, err
	}

	candidates := make(chan PeerEndpoint, len(list.Peers))
	for _, p := range list.Peers {
		candidates <- p
	}
	close(candidates)

	type dialOutcome struct {
		session *PeerSession
		err     error
	}
	outcomes := make(chan dialOutcome, len(list.Peers))
	stop := make(chan struct{})
	var stopOnce sync.Once

	var wg sync.WaitGroup
	for i := 0; i < e.Config.MaxInFlightDials; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				case addr, ok := <-candidates:
					if !ok {
						return
					}
					sess, err := DialPeerSession(addr, meta.InfoHash, peerID, numPieces, e.Config, e.Log)
					outcomes <- dialOutcome{session: sess, err: err}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var active []*PeerSession
	for o := range outcomes {
		if o.err != nil {
			continue // already logged by DialPeerSession
		}
		if len(active) >= e.Config.TargetActiveSessions {
			o.session.Close() // surplus dial raced past the target; discard
			continue
		}
		active = append(active, o.session)
		if len(active) == e.Config.TargetActiveSessions {
			stopOnce.Do(func() { close(stop) })
		}
	}

	if len(active) < 1 {
		return nil, &Error{Kind: KindNoPeers, Message: "no peer session reached Active"}
	}
	return active, nil
}

// fetchPiece implements spec.md §4.5 Phase 3: the per-piece scatter/gather
// over the eligible sessions for piece.
func (e *Engine) fetchPiece(piece PieceDescriptor, sessions []*PeerSession) ([]byte, error) {
	nblocks := int((piece.Length + BlockMax - 1) / BlockMax)

	work := make(chan int, nblocks)
	for b := 0; b < nblocks; b++ {
		work <- b
	}
	close(work) // all nblocks items are already buffered; closing now is equivalent to the
	// coordinator "dropping the sender" once every block has been handed out (spec.md §5).

	results := make(chan BlockResult, nblocks)

	var wg sync.WaitGroup
	for _, si := range piece.Providers {
		sess := sessions[si]
		wg.Add(1)
		go func(s *PeerSession) {
			defer wg.Done()
			if err := s.Participate(PieceJob{Index: piece.Index, Length: piece.Length}, work, results, e.Config.ParticipantIdleTimeout); err != nil {
				e.Log.SessionClosed(s.Addr.String(), err)
				s.Close()
			}
		}(sess)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	buf := make([]byte, piece.Length)
	var received int64

	for {
		select {
		case block := <-results:
			copy(buf[block.Begin:], block.Data)
			received += int64(len(block.Data))
			if received == piece.Length {
				<-done // let the remaining participants observe the drained, closed work channel and return
				return buf, nil
			}
		case <-done:
			// All participants have ended, but results is buffered and every
			// send onto it never blocks, so a block may have landed in the
			// channel before its sender's goroutine exited and done closed.
			// Drain whatever is already buffered before declaring starvation
			// (spec.md §4.5 step 7: starvation requires done AND a drained R).
			drained := true
			for drained {
				select {
				case block := <-results:
					copy(buf[block.Begin:], block.Data)
					received += int64(len(block.Data))
				default:
					drained = false
				}
			}
			if received < piece.Length {
				e.Log.PieceStarved(piece.Index, int(received), int(piece.Length))
				return nil, &Error{Kind: KindPieceStarved, Index: piece.Index}
			}
			return buf, nil
		}
	}
}
