package torrent

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"os"
	"strconv"

	bencode "github.com/jackpal/bencode-go"
)

// --------------------------------------------------------------------------------------------- //

/*
extractInfoBytes extracts the info dictionary bytes from a bencoded torrent file.
It locates the "4:info" prefix and walks the bencode grammar to find the exact
span of the corresponding dictionary, rather than re-marshaling the decoded
struct — InfoHash must be the SHA-1 of the original encoded bytes (spec.md §3),
and re-encoding could silently reorder fields and produce the wrong hash.

Parameters:
  - data: Byte slice containing the bencoded torrent file data.

Returns:
  - []byte: Byte slice of the info dictionary if found and valid.
  - error: Non-nil if the info dictionary is not found, unterminated, or malformed.
*/
func extractInfoBytes(data []byte) ([]byte, error) {
	idx := bytes.Index(data, []byte("4:info"))
	if idx < 0 {
		return nil, &Error{Kind: KindMetainfoParse, Message: `no "4:info" key found`}
	}

	start := idx + len("4:info")

	depth := 0
	for i := start; i < len(data); i++ {
		b := data[i]

		switch b {
		case 'd', 'l':
			depth++
		case 'e':
			depth--

			if depth == 0 {
				return data[start : i+1], nil
			}

		case 'i':
			j := i + 1
			for ; j < len(data) && data[j] != 'e'; j++ {
			}

			if j >= len(data) {
				return nil, &Error{Kind: KindMetainfoParse, Message: fmt.Sprintf("unterminated integer at byte %d", i)}
			}

			i = j

		default:
			if b >= '0' && b <= '9' {
				j := i

				for ; j < len(data) && data[j] >= '0' && data[j] <= '9'; j++ {
				}

				if j < len(data) && data[j] == ':' {
					length, err := strconv.Atoi(string(data[i:j]))
					if err != nil {
						return nil, &Error{Kind: KindMetainfoParse, Message: fmt.Sprintf("invalid string length at byte %d-%d", i, j)}
					}

					j++

					i = j + length - 1
				}
			}
		}
	}

	return nil, &Error{Kind: KindMetainfoParse, Message: "unterminated info dictionary"}
}

// --------------------------------------------------------------------------------------------- //

// computeInfoHash returns the SHA-1 of the info dictionary's original
// bencoded bytes within data.
func computeInfoHash(data []byte) (InfoHash, error) {
	infoBytes, err := extractInfoBytes(data)
	if err != nil {
		return InfoHash{}, err
	}

	return sha1.Sum(infoBytes), nil
}

// --------------------------------------------------------------------------------------------- //

// Metainfo pairs a decoded TorrentFile with its derived InfoHash, since the
// hash is computed from the raw bytes rather than stored on the decoded
// struct itself (spec.md §3, §6.1).
type Metainfo struct {
	File     TorrentFile
	InfoHash InfoHash
}

/*
ParseMetainfo reads and decodes a .torrent file and computes its info hash.
Decoding uses github.com/jackpal/bencode-go, the out-of-scope bencode
collaborator named in spec.md §1.

Parameters:
  - path: Path to the .torrent file on disk.

Returns:
  - *Metainfo: The decoded torrent and its info hash.
  - error: Non-nil if file opening, bencode decoding, or hash computation fails.
*/
func ParseMetainfo(path string) (*Metainfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindMetainfoParse, Message: fmt.Sprintf("reading %q", path), Cause: err}
	}

	return DecodeMetainfo(data)
}

// DecodeMetainfo decodes raw .torrent bytes, exposed separately from
// ParseMetainfo so tests can exercise it against in-memory fixtures.
func DecodeMetainfo(data []byte) (*Metainfo, error) {
	var file TorrentFile
	if err := bencode.Unmarshal(bytes.NewReader(data), &file); err != nil {
		return nil, &Error{Kind: KindMetainfoParse, Message: "decoding bencode", Cause: err}
	}

	hash, err := computeInfoHash(data)
	if err != nil {
		return nil, err
	}

	return &Metainfo{File: file, InfoHash: hash}, nil
}

// --------------------------------------------------------------------------------------------- //
