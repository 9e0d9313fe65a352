package torrent

import "fmt"

// InfoHash is the SHA-1 of the bencoded info dictionary (spec.md §3); it
// uniquely names a torrent for the peer handshake and tracker request.
type InfoHash [20]byte

// PieceHashLen is the length in bytes of one piece's SHA-1 (spec.md §3).
const PieceHashLen = 20

// NumPieces returns P, the number of pieces, derived from the length of
// info.pieces (spec.md §3: "its length must be exactly 20·P").
func (t *TorrentFile) NumPieces() (int, error) {
	if len(t.Info.Pieces)%PieceHashLen != 0 {
		return 0, &Error{Kind: KindMetainfoParse, Message: fmt.Sprintf("pieces length %d not a multiple of %d", len(t.Info.Pieces), PieceHashLen)}
	}
	return len(t.Info.Pieces) / PieceHashLen, nil
}

// PieceHash returns the expected SHA-1 of piece i.
func (t *TorrentFile) PieceHash(i int) [20]byte {
	var h [20]byte
	copy(h[:], t.Info.Pieces[i*PieceHashLen:(i+1)*PieceHashLen])
	return h
}

// TotalLength returns the torrent's total content size: the single-file
// length, or the sum of all file lengths for a multi-file torrent (spec.md
// §6.1: "Exactly one of length / files is present").
func (t *TorrentFile) TotalLength() int64 {
	if len(t.Info.Files) == 0 {
		return t.Info.Length
	}
	var total int64
	for _, f := range t.Info.Files {
		total += f.Length
	}
	return total
}

// PieceLength returns the length of piece i: info.piece_length for every
// piece but possibly the last, which is total_length − (P−1)·piece_length
// when that remainder is non-zero, else piece_length (spec.md §3).
func (t *TorrentFile) PieceLength(i, numPieces int) int64 {
	if i != numPieces-1 {
		return t.Info.PieceLength
	}
	remainder := t.TotalLength() - int64(numPieces-1)*t.Info.PieceLength
	if remainder == 0 {
		return t.Info.PieceLength
	}
	return remainder
}

// FileSpan is one entry of the torrent's output file list, with the byte
// offset it occupies within the concatenated piece stream (spec.md §3
// DownloadedBuffer, §6.5).
type FileSpan struct {
	Path   string
	Length int64
	Offset int64
}

// FileSpans computes the per-file layout of the concatenated content: for a
// single-file torrent, one entry named by info.name; for a multi-file
// torrent, one entry per info.files entry with its path components joined
// by "/" (info.name is not prepended), laid out sequentially (spec.md §6.1,
// §6.5).
//
// Grounded on the teacher's BuildFileInfo (torrent/utils.go), generalized
// to not depend on an output directory — the caller's assembler joins that
// in separately (SPEC_FULL.md §12 FileWriter).
func (t *TorrentFile) FileSpans() []FileSpan {
	if len(t.Info.Files) == 0 {
		return []FileSpan{{Path: t.Info.Name, Length: t.Info.Length, Offset: 0}}
	}

	spans := make([]FileSpan, 0, len(t.Info.Files))
	var offset int64
	for _, entry := range t.Info.Files {
		path := entry.Path[0]
		for _, part := range entry.Path[1:] {
			path = path + "/" + part
		}
		spans = append(spans, FileSpan{Path: path, Length: entry.Length, Offset: offset})
		offset += entry.Length
	}
	return spans
}
