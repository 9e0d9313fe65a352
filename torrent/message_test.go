package torrent

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageSerializeRoundTrip(t *testing.T) {
	r := require.New(t)

	msg := &Message{ID: MsgPiece, Payload: []byte{1, 2, 3, 4}}
	wire := msg.Serialize()

	framer := NewMessageFramer(bytes.NewReader(wire))
	got, err := framer.ReadMessage()
	r.NoError(err)
	r.Equal(msg.ID, got.ID)
	r.Equal(msg.Payload, got.Payload)
}

func TestMessageFramerSkipsKeepAlives(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0}) // keep-alive
	buf.Write([]byte{0, 0, 0, 0}) // keep-alive
	buf.Write((&Message{ID: MsgUnchoke}).Serialize())

	framer := NewMessageFramer(&buf)
	got, err := framer.ReadMessage()
	r.NoError(err)
	r.Equal(MsgUnchoke, got.ID)
	r.Empty(got.Payload)
}

func TestMessageFramerRejectsOversizeFrame(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	var lengthBuf [4]byte
	lengthBuf[0] = 0xFF // length far exceeds MaxFrame
	buf.Write(lengthBuf[:])

	framer := NewMessageFramer(&buf)
	_, err := framer.ReadMessage()
	r.Error(err)

	var tErr *Error
	r.ErrorAs(err, &tErr)
	r.Equal(KindInvalidFrameTooLarge, tErr.Kind)
}

func TestMessageFramerRejectsUnknownTag(t *testing.T) {
	r := require.New(t)

	msg := &Message{ID: MessageID(99)}
	framer := NewMessageFramer(bytes.NewReader(msg.Serialize()))

	_, err := framer.ReadMessage()
	r.Error(err)

	var tErr *Error
	r.ErrorAs(err, &tErr)
	r.Equal(KindUnknownTag, tErr.Kind)
}

func TestMessageFramerShortReadIsIOError(t *testing.T) {
	r := require.New(t)

	framer := NewMessageFramer(bytes.NewReader(nil))
	_, err := framer.ReadMessage()
	r.ErrorIs(err, io.EOF)
}

func TestMessageFramerKeepAliveThenHaveScenario(t *testing.T) {
	r := require.New(t)

	wire := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05, 0x04, 0x00, 0x00, 0x00, 0x07}
	framer := NewMessageFramer(bytes.NewReader(wire))

	got, err := framer.ReadMessage()
	r.NoError(err)
	r.Equal(MsgHave, got.ID)
	r.Equal([]byte{0, 0, 0, 7}, got.Payload)
}

func TestDecodeFrameNeedsMoreData(t *testing.T) {
	r := require.New(t)

	msg, consumed, err := DecodeFrame([]byte{0, 0, 0})
	r.NoError(err)
	r.Nil(msg)
	r.Equal(0, consumed)
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	r := require.New(t)

	original := &Message{ID: MsgHave, Payload: []byte{0, 0, 0, 7}}
	wire := original.Serialize()

	msg, consumed, err := DecodeFrame(wire)
	r.NoError(err)
	r.Equal(len(wire), consumed)
	r.Equal(original.ID, msg.ID)
	r.Equal(original.Payload, msg.Payload)
}

func TestDecodeFrameMultipleKeepAlivesThenFrame(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write([]byte{0, 0, 0, 0})
	original := &Message{ID: MsgInterested}
	buf.Write(original.Serialize())

	msg, consumed, err := DecodeFrame(buf.Bytes())
	r.NoError(err)
	r.Equal(buf.Len(), consumed)
	r.Equal(MsgInterested, msg.ID)
}

func TestRequestEncodeDecode(t *testing.T) {
	r := require.New(t)

	req := Request{Index: 3, Begin: 16384, Length: 16384}
	decoded, err := DecodeRequest(req.Encode())
	r.NoError(err)
	r.Equal(req, decoded)
}

func TestDecodeRequestRejectsWrongLength(t *testing.T) {
	r := require.New(t)

	_, err := DecodeRequest([]byte{1, 2, 3})
	r.Error(err)
}

func TestPieceBlockEncodeDecode(t *testing.T) {
	r := require.New(t)

	block := PieceBlock{Index: 2, Begin: 0, Block: []byte("hello")}
	decoded, err := DecodePieceBlock(block.Encode())
	r.NoError(err)
	r.Equal(block.Index, decoded.Index)
	r.Equal(block.Begin, decoded.Begin)
	r.Equal(block.Block, decoded.Block)
}
