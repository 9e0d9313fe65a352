package torrent

import (
	"strings"

	"github.com/google/uuid"
)

// peerIDLength is the fixed BEP-20 peer id size.
const peerIDLength = 20

// GeneratePeerID mints a 20-byte BEP-20 client identifier: a fixed prefix
// (EngineConfig.PeerIDPrefix, default "-GT0001-") followed by random
// filler. The filler is derived from a uuid.New() instead of the teacher's
// raw crypto/rand + modulo-alphabet loop (torrent/utils.go:GeneratePeerID),
// per SPEC_FULL.md §11.
func GeneratePeerID(prefix string) string {
	fill := peerIDLength - len(prefix)
	if fill <= 0 {
		return prefix[:peerIDLength]
	}

	id := uuid.New()
	raw := strings.ReplaceAll(id.String(), "-", "")
	for len(raw) < fill {
		raw += raw
	}

	return prefix + raw[:fill]
}

// SessionID mints a random UUID string, distinct from the BEP-20 peer id.
// Nothing in this module calls it; engine log lines carry no session id.
func SessionID() string {
	return uuid.New().String()
}
