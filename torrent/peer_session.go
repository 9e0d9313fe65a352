package torrent

import (
	"encoding/binary"
	"net"
	"time"

	"bittorrent/torrent/tlog"
)

// SessionState is a PeerSession's position in the lifecycle spec.md §4.3
// names: Dialing → Handshaking → AwaitingBitfield → ExchangingInterest →
// Active → Closed.
type SessionState int

const (
	StateDialing SessionState = iota
	StateHandshaking
	StateAwaitingBitfield
	StateExchangingInterest
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateDialing:
		return "Dialing"
	case StateHandshaking:
		return "Handshaking"
	case StateAwaitingBitfield:
		return "AwaitingBitfield"
	case StateExchangingInterest:
		return "ExchangingInterest"
	case StateActive:
		return "Active"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// PeerSession owns one TCP connection to a peer exclusively, from dial
// through handshake, bitfield exchange, and interest negotiation, to
// participation in the block scheduler (spec.md §3, §4.3).
//
// Grounded on the teacher's PerformHandshake/DownloadFromPeer
// (torrent/p2p.go), split into explicit lifecycle steps so each state
// transition is independently testable (spec.md §8 property 5, scenario
// S4) instead of one large function.
type PeerSession struct {
	Addr     PeerEndpoint
	PeerID   [20]byte
	Bitfield Bitfield

	conn     net.Conn
	framer   *MessageFramer
	state    SessionState
	cfg      EngineConfig
	log      *tlog.Logger
	lastSend time.Time
}

// keepAliveInterval is BEP-3's customary keep-alive cadence: a connection
// left outbound-idle this long should emit a zero-length frame so the peer
// doesn't time out and drop it.
const keepAliveInterval = 90 * time.Second

var keepAliveFrame = []byte{0, 0, 0, 0}

// DialPeerSession dials addr, performs the handshake, reads the peer's
// initial Bitfield, and negotiates interest through to Active — or returns
// an error at whichever step failed, per spec.md §4.5 Phase 1 ("Sessions
// that fail to dial/handshake are discarded with a warning").
func DialPeerSession(addr PeerEndpoint, infoHash InfoHash, peerID [20]byte, numPieces int, cfg EngineConfig, log *tlog.Logger) (*PeerSession, error) {
	if log == nil {
		log = tlog.Nop()
	}

	log.DialStart(addr.String())

	conn, err := net.DialTimeout("tcp", addr.String(), cfg.DialTimeout)
	if err != nil {
		log.DialFailed(addr.String(), err)
		return nil, &Error{Kind: KindPeerConnect, Message: "dialing " + addr.String(), Cause: err}
	}

	s := &PeerSession{
		Addr:   addr,
		conn:   conn,
		framer: NewMessageFramer(conn),
		state:  StateDialing,
		cfg:    cfg,
		log:    log,
	}

	if err := s.handshake(infoHash, peerID); err != nil {
		log.HandshakeFailed(addr.String(), err)
		conn.Close()
		s.state = StateClosed
		return nil, err
	}
	log.HandshakeOK(addr.String(), string(s.PeerID[:]))

	if err := s.awaitBitfield(numPieces); err != nil {
		conn.Close()
		s.state = StateClosed
		return nil, err
	}

	if err := s.exchangeInterest(); err != nil {
		conn.Close()
		s.state = StateClosed
		return nil, err
	}

	s.state = StateActive
	s.lastSend = time.Now()
	log.SessionActive(addr.String())
	return s, nil
}

// handshake performs Dialing → Handshaking → (InfoHash verified).
func (s *PeerSession) handshake(infoHash InfoHash, peerID [20]byte) error {
	s.state = StateHandshaking

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	if err := WriteHandshake(s.conn, Handshake{InfoHash: infoHash, PeerID: peerID}); err != nil {
		return &Error{Kind: KindHandshakeMismatch, Message: "writing handshake", Cause: err}
	}

	s.conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	remote, err := ReadHandshake(s.conn)
	if err != nil {
		return err
	}

	if remote.InfoHash != infoHash {
		return &Error{Kind: KindHandshakeMismatch, Message: "info hash mismatch"}
	}

	s.PeerID = remote.PeerID
	return nil
}

// awaitBitfield performs Handshaking → AwaitingBitfield → ExchangingInterest:
// the first frame after the handshake MUST be Bitfield (spec.md §4.3).
func (s *PeerSession) awaitBitfield(numPieces int) error {
	s.state = StateAwaitingBitfield

	s.conn.SetReadDeadline(time.Now().Add(s.cfg.MessageTimeout))
	msg, err := s.framer.ReadMessage()
	if err != nil {
		return err
	}
	if msg.ID != MsgBitfield {
		return &Error{Kind: KindUnexpectedFrame, Message: "expected Bitfield as first frame, got " + msg.ID.String()}
	}

	bf := make(Bitfield, len(msg.Payload))
	copy(bf, msg.Payload)
	s.Bitfield = bf
	_ = numPieces // bitfield length is tolerated even if it over/under-shoots ⌈numPieces/8⌉; Has() bounds-checks.

	s.state = StateExchangingInterest
	return nil
}

// exchangeInterest performs ExchangingInterest → Active: send Interested,
// then block until Unchoke. A second Bitfield while waiting is rejected —
// BEP-3 forbids it, and spec.md §9 Open Questions says implementations
// SHOULD treat it as UnexpectedFrame.
func (s *PeerSession) exchangeInterest() error {
	if err := s.sendMessage(&Message{ID: MsgInterested}); err != nil {
		return err
	}

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.MessageTimeout))
		msg, err := s.framer.ReadMessage()
		if err != nil {
			return err
		}

		switch msg.ID {
		case MsgUnchoke:
			if len(msg.Payload) != 0 {
				return &Error{Kind: KindUnexpectedFrame, Message: "Unchoke with non-empty payload"}
			}
			return nil
		case MsgChoke:
			continue
		case MsgHave:
			continue
		default:
			return &Error{Kind: KindUnexpectedFrame, Message: "expected Unchoke, got " + msg.ID.String()}
		}
	}
}

func (s *PeerSession) sendMessage(m *Message) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.MessageTimeout))
	if _, err := s.conn.Write(m.Serialize()); err != nil {
		return &Error{Kind: KindFrameIO, Message: "writing " + m.ID.String(), Cause: err}
	}
	s.lastSend = time.Now()
	return nil
}

// maybeSendKeepAlive emits a zero-length frame if the connection has gone
// keepAliveInterval without an outbound message (SPEC_FULL.md §12 "keep-alive
// emission"). Consulted once per Participate loop iteration.
func (s *PeerSession) maybeSendKeepAlive() error {
	if time.Since(s.lastSend) < keepAliveInterval {
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.MessageTimeout))
	if _, err := s.conn.Write(keepAliveFrame); err != nil {
		return &Error{Kind: KindFrameIO, Message: "writing keep-alive", Cause: err}
	}
	s.lastSend = time.Now()
	return nil
}

// Close terminates the session's connection. Safe to call on a session that
// is mid-request: the spec requires participants be safe to drop between a
// request and its response (spec.md §5 "Cancellation").
func (s *PeerSession) Close() error {
	s.state = StateClosed
	return s.conn.Close()
}

func (s *PeerSession) State() SessionState { return s.state }

// --------------------------------------------------------------------------------------------- //

// PieceJob identifies the piece a participation loop is fetching blocks
// for.
type PieceJob struct {
	Index  int
	Length int64
}

// BlockResult is one completed block, addressed by its byte offset within
// the piece (spec.md §5: "correctness depends only on (begin, length)
// matching the request and on the coordinator indexing by begin").
type BlockResult struct {
	Begin int
	Data  []byte
}

// Participate repeatedly pulls a block index from work, requests it, and
// forwards the decoded block to results, until work is closed (the
// coordinator cancelling the piece) or a fatal step error occurs.
//
// This is the session's half of spec.md §4.3's "Concurrency contract for
// block fetching" / §4.5 Phase 3 scatter-gather, and it enforces the
// single-outstanding-request backpressure of spec.md §4.3: the next block
// is pulled only after the previous Piece is received.
func (s *PeerSession) Participate(piece PieceJob, work <-chan int, results chan<- BlockResult, idleTimeout time.Duration) error {
	if !s.Bitfield.Has(piece.Index) {
		return &Error{Kind: KindUnexpectedFrame, Message: "peer bitfield lacks requested piece"}
	}

	for {
		if err := s.maybeSendKeepAlive(); err != nil {
			return err
		}

		blockIndex, ok := <-work
		if !ok {
			return nil // work channel closed: piece complete or cancelled
		}

		begin := int64(blockIndex) * BlockMax
		length := int64(BlockMax)
		if remaining := piece.Length - begin; remaining < length {
			length = remaining
		}

		req := Request{Index: uint32(piece.Index), Begin: uint32(begin), Length: uint32(length)}
		if err := s.sendMessage(&Message{ID: MsgRequest, Payload: req.Encode()}); err != nil {
			return err
		}

		block, err := s.awaitBlock(piece, begin, length, idleTimeout)
		if err != nil {
			return err
		}
		if block == nil {
			return nil // no progress within the idle window: withdraw voluntarily (spec.md §5)
		}

		results <- *block
	}
}

// awaitBlock reads frames until the Piece matching (index, begin, length)
// arrives, skipping the interleaved Have/Choke/Unchoke traffic spec.md §6.3
// explicitly allows between Piece replies. A Have updates the session's own
// availability snapshot so the planner can pick it up at the next piece
// (SPEC_FULL.md §12). It returns (nil, nil) on an idle-window timeout and a
// fatal error on anything else unexpected.
func (s *PeerSession) awaitBlock(piece PieceJob, begin, length int64, idleTimeout time.Duration) (*BlockResult, error) {
	for {
		s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		msg, err := s.framer.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				return nil, nil
			}
			return nil, err
		}

		switch msg.ID {
		case MsgPiece:
			block, err := DecodePieceBlock(msg.Payload)
			if err != nil {
				return nil, err
			}
			if block.Index != uint32(piece.Index) || block.Begin != uint32(begin) || int64(len(block.Block)) != length {
				return nil, &Error{Kind: KindUnexpectedFrame, Message: "piece block does not match outstanding request"}
			}
			return &BlockResult{Begin: int(begin), Data: block.Block}, nil
		case MsgHave:
			if len(msg.Payload) == 4 {
				s.Bitfield.Set(int(binary.BigEndian.Uint32(msg.Payload)))
			}
			continue
		case MsgChoke, MsgUnchoke:
			continue
		default:
			return nil, &Error{Kind: KindUnexpectedFrame, Message: "expected Piece, got " + msg.ID.String()}
		}
	}
}

// isTimeout reports whether err is (or wraps) a net.Error deadline
// expiration, distinguishing "no progress" from a genuine I/O failure.
func isTimeout(err error) bool {
	type timeoutError interface {
		Timeout() bool
	}
	for e := err; e != nil; {
		if te, ok := e.(timeoutError); ok && te.Timeout() {
			return true
		}
		unwrapper, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = unwrapper.Unwrap()
	}
	return false
}
