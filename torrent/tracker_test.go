package torrent

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bencode "github.com/jackpal/bencode-go"
	"github.com/stretchr/testify/require"

	"bittorrent/torrent/tlog"
)

func TestTrackerClientQuerySuccess(t *testing.T) {
	r := require.New(t)

	compactPeers := string([]byte{127, 0, 0, 1, 0x1A, 0xE1, 10, 0, 0, 2, 0x1A, 0xE2})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Equal("1", req.URL.Query().Get("compact"))
		bencode.Marshal(w, trackerResponse{Interval: 1800, Peers: compactPeers})
	}))
	defer srv.Close()

	c := NewTrackerClient(5*time.Second, tlog.Nop())
	list, err := c.Query(srv.URL, InfoHash{}, "-GT0001-AAAAAAAAAAAA", 6881, 1000)
	r.NoError(err)
	r.Equal(1800, list.Interval)
	r.Len(list.Peers, 2)
	r.Equal(PeerEndpoint{IP: "127.0.0.1", Port: 0x1AE1}, list.Peers[0])
	r.Equal(PeerEndpoint{IP: "10.0.0.2", Port: 0x1AE2}, list.Peers[1])
}

func TestTrackerClientQueryFailureReason(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		bencode.Marshal(w, trackerResponse{Failure: "torrent not registered"})
	}))
	defer srv.Close()

	c := NewTrackerClient(5*time.Second, tlog.Nop())
	_, err := c.Query(srv.URL, InfoHash{}, "-GT0001-AAAAAAAAAAAA", 6881, 1000)
	r.Error(err)

	var tErr *Error
	r.ErrorAs(err, &tErr)
	r.Equal(KindTrackerReject, tErr.Kind)
	r.Contains(tErr.Message, "not registered")
}

func TestTrackerClientQueryNonOKStatus(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewTrackerClient(5*time.Second, tlog.Nop())
	_, err := c.Query(srv.URL, InfoHash{}, "-GT0001-AAAAAAAAAAAA", 6881, 1000)
	r.Error(err)

	var tErr *Error
	r.ErrorAs(err, &tErr)
	r.Equal(KindTrackerIO, tErr.Kind)
}

func TestParseCompactPeersRejectsBadLength(t *testing.T) {
	r := require.New(t)

	_, err := parseCompactPeers("too-short")
	r.Error(err)

	var tErr *Error
	r.ErrorAs(err, &tErr)
	r.Equal(KindTrackerDecode, tErr.Kind)
}

func TestPercentEncodeBytesEscapesEveryByte(t *testing.T) {
	r := require.New(t)

	got := percentEncodeBytes([]byte{0x61, 0x00, 0xFF}) // 'a', nul, 0xff
	r.Equal(fmt.Sprintf("%%61%%00%%ff"), got)
}
