package torrent

import "fmt"

// Kind classifies an Error by its origin, matching the taxonomy in
// spec.md §7. It lets callers branch with
// errors.Is(err, &torrent.Error{Kind: torrent.KindX}) without string matching, generalizing the teacher's bare
// fmt.Errorf("...: %v", err) chains (torrent/p2p.go, torrent/tracker.go)
// into an inspectable type.
type Kind int

const (
	KindUnknown Kind = iota
	KindMetainfoParse
	KindTrackerIO
	KindTrackerDecode
	KindTrackerReject
	KindPeerConnect
	KindHandshakeMismatch
	KindFrameIO
	KindInvalidFrameTooLarge
	KindUnknownTag
	KindUnexpectedFrame
	KindPieceStarved
	KindHashMismatch
	KindNoPeers
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindMetainfoParse:
		return "MetainfoParse"
	case KindTrackerIO:
		return "TrackerIO"
	case KindTrackerDecode:
		return "TrackerDecode"
	case KindTrackerReject:
		return "TrackerReject"
	case KindPeerConnect:
		return "PeerConnect"
	case KindHandshakeMismatch:
		return "HandshakeMismatch"
	case KindFrameIO:
		return "FrameIO"
	case KindInvalidFrameTooLarge:
		return "InvalidFrameTooLarge"
	case KindUnknownTag:
		return "UnknownTag"
	case KindUnexpectedFrame:
		return "UnexpectedFrame"
	case KindPieceStarved:
		return "PieceStarved"
	case KindHashMismatch:
		return "HashMismatch"
	case KindNoPeers:
		return "NoPeers"
	case KindUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Error is the single error type produced by this package. It carries a
// Kind for programmatic dispatch (errors.Is(err, &Error{Kind: ...}) via
// Is), an optional free-form Message, and an optional wrapped Cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Index identifies the piece a piece-level error (HashMismatch,
	// PieceStarved, Unavailable) concerns. Zero value is meaningless unless
	// Kind is one of those.
	Index int
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, &torrent.Error{Kind: torrent.KindHashMismatch}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
