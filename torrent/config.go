package torrent

import "time"

// EngineConfig holds the tunables of download_all (spec.md §4.5), lifted
// out of the teacher's inline constants (the 10-slot dial semaphore, 60s
// read/write deadlines — torrent/p2p.go) into named, overridable fields.
// The block size is not a field; it stays the BlockMax constant. Defaults mirror the teacher's hardcoded values and
// the spec's recommendations (§5 "Timeouts").
//
// Grounded also on prxssh-rabbit's scheduler.Config/WithDefaultConfig
// shape (other_examples/.../scheduler.go), simplified to the single
// outstanding-request-per-peer model spec.md §4.3 requires (no
// pipelining/endgame knobs, since both are explicit non-goals).
type EngineConfig struct {
	// MaxInFlightDials bounds concurrent peer dial+handshake attempts
	// during peer acquisition (spec.md §4.5 Phase 1).
	MaxInFlightDials int

	// TargetActiveSessions is the number of Active sessions the engine
	// stops dialing at (spec.md §4.5 Phase 1: "stop once 5 sessions are
	// fully Active").
	TargetActiveSessions int

	// DialTimeout bounds a single peer TCP connect.
	DialTimeout time.Duration

	// HandshakeTimeout bounds the handshake write+read round trip.
	HandshakeTimeout time.Duration

	// MessageTimeout bounds a single frame write once a session is past the
	// handshake, and each frame read up to Active; reads while waiting for a
	// block are bounded by ParticipantIdleTimeout instead.
	MessageTimeout time.Duration

	// ParticipantIdleTimeout is the "implementation-defined idle window"
	// of spec.md §5: a participant with no block progress for this long
	// withdraws voluntarily rather than being treated as failed.
	ParticipantIdleTimeout time.Duration

	// TrackerTimeout bounds the tracker HTTP round trip.
	TrackerTimeout time.Duration

	// PeerIDPrefix is the fixed BEP-20 client identification prefix; the
	// remaining 12 bytes are randomly generated per run (torrent/identity.go).
	PeerIDPrefix string

	// Port is the port advertised to the tracker (spec.md §6.4).
	Port uint16
}

// DefaultEngineConfig returns the engine's default tunables.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxInFlightDials:       5,
		TargetActiveSessions:   5,
		DialTimeout:            5 * time.Second,
		HandshakeTimeout:       5 * time.Second,
		MessageTimeout:         60 * time.Second,
		ParticipantIdleTimeout: 30 * time.Second,
		TrackerTimeout:         15 * time.Second,
		PeerIDPrefix:           "-GT0001-",
		Port:                   6881,
	}
}
