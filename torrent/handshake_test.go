package torrent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandshakeEncodeDecodeRoundTrip(t *testing.T) {
	r := require.New(t)

	var hash InfoHash
	hash[0] = 0x42
	var peerID [20]byte
	copy(peerID[:], "-GT0001-AAAAAAAAAAAA")

	hs := Handshake{InfoHash: hash, PeerID: peerID}
	wire := hs.Encode()
	r.Len(wire, handshakeLen)

	decoded, err := ReadHandshake(bytes.NewReader(wire))
	r.NoError(err)
	r.Equal(hs, decoded)
}

func TestReadHandshakeRejectsBadProtocolLength(t *testing.T) {
	r := require.New(t)

	wire := make([]byte, handshakeLen)
	wire[0] = 18 // wrong length

	_, err := ReadHandshake(bytes.NewReader(wire))
	r.Error(err)

	var tErr *Error
	r.ErrorAs(err, &tErr)
	r.Equal(KindHandshakeMismatch, tErr.Kind)
}

func TestReadHandshakeRejectsBadProtocolString(t *testing.T) {
	r := require.New(t)

	wire := make([]byte, handshakeLen)
	wire[0] = 19
	copy(wire[1:20], "NotTheRightProtocol")

	_, err := ReadHandshake(bytes.NewReader(wire))
	r.Error(err)

	var tErr *Error
	r.ErrorAs(err, &tErr)
	r.Equal(KindHandshakeMismatch, tErr.Kind)
}

func TestReadHandshakeShortRead(t *testing.T) {
	r := require.New(t)

	_, err := ReadHandshake(bytes.NewReader(make([]byte, 10)))
	r.Error(err)
}
