package torrent

import (
	"bytes"
	"io"
)

const protocolName = "BitTorrent protocol"

// handshakeLen is the fixed 68-byte handshake record size (spec.md §4.1).
const handshakeLen = 1 + 19 + 8 + 20 + 20

// Handshake is the fixed 68-byte record exchanged before any framed
// message: a length-prefixed protocol name, 8 reserved zero bytes, the
// torrent's InfoHash, and the sender's 20-byte peer id.
//
// Grounded on the teacher's torrent/p2p.go:Handshake struct, rewritten as
// an explicit Encode method and ReadHandshake function instead of
// binary.Write/Read against a fixed-size Go struct, following the packed,
// explicitly serialized record layout of spec.md §9.
type Handshake struct {
	InfoHash InfoHash
	PeerID   [20]byte
}

// Encode renders h as the 68-byte wire handshake.
func (h Handshake) Encode() []byte {
	buf := make([]byte, 0, handshakeLen)
	buf = append(buf, byte(len(protocolName)))
	buf = append(buf, protocolName...)
	buf = append(buf, make([]byte, 8)...) // reserved
	buf = append(buf, h.InfoHash[:]...)
	buf = append(buf, h.PeerID[:]...)
	return buf
}

// WriteHandshake writes h to w.
func WriteHandshake(w io.Writer, h Handshake) error {
	_, err := w.Write(h.Encode())
	return err
}

// ReadHandshake reads and validates a 68-byte handshake from r. Both the
// length byte (must be 19) and the literal protocol string must match, or
// the peer is rejected without ever leaving the Handshaking state
// (spec.md §4.1, §8 property 5).
func ReadHandshake(r io.Reader) (Handshake, error) {
	buf := make([]byte, handshakeLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Handshake{}, &Error{Kind: KindHandshakeMismatch, Message: "reading handshake", Cause: err}
	}

	if buf[0] != 19 {
		return Handshake{}, &Error{Kind: KindHandshakeMismatch, Message: "unexpected protocol name length"}
	}
	if !bytes.Equal(buf[1:20], []byte(protocolName)) {
		return Handshake{}, &Error{Kind: KindHandshakeMismatch, Message: "unexpected protocol string"}
	}

	var hs Handshake
	copy(hs.InfoHash[:], buf[28:48])
	copy(hs.PeerID[:], buf[48:68])
	return hs, nil
}
