package torrent

import (
	"fmt"
	"os"
	"path/filepath"
)

// DownloadedBuffer owns the torrent's full content, addressed by byte
// offset (spec.md §3). Piece i occupies [i·plength, i·plength+length_i);
// CommitPiece is the only write path, and it is only ever called after
// hash verification succeeds (spec.md §3 invariant, §4.5 "Verification &
// commit").
type DownloadedBuffer struct {
	data        []byte
	pieceLength int64
}

// NewDownloadedBuffer allocates a zeroed buffer sized for totalLength
// bytes, addressed in pieceLength-sized strides.
func NewDownloadedBuffer(totalLength, pieceLength int64) *DownloadedBuffer {
	return &DownloadedBuffer{
		data:        make([]byte, totalLength),
		pieceLength: pieceLength,
	}
}

// CommitPiece copies data into the buffer at piece index's offset. It does
// not itself verify the hash — callers (the download engine) must only
// call this after SHA1(data) == the expected piece hash.
func (b *DownloadedBuffer) CommitPiece(index int, data []byte) error {
	offset := int64(index) * b.pieceLength
	if offset < 0 || offset+int64(len(data)) > int64(len(b.data)) {
		return &Error{Kind: KindUnknown, Message: fmt.Sprintf("piece %d (offset %d, length %d) out of buffer bounds (%d)", index, offset, len(data), len(b.data))}
	}
	copy(b.data[offset:], data)
	return nil
}

// Bytes returns the full concatenated content. Callers must not observe it
// until download_all has returned (spec.md §5 ordering guarantees).
func (b *DownloadedBuffer) Bytes() []byte {
	return b.data
}

// FileChunk is one (path, byte-slice) pair produced by slicing
// DownloadedBuffer against a torrent's file list (spec.md §4.6, §6.5).
type FileChunk struct {
	Path string
	Data []byte
}

// Files walks spans sequentially and slices the buffer accordingly,
// matching spec.md §8 property 7: for files [(10,"a"), (5,"b/c")] with
// total length 15, yields ("a", data[0:10]) then ("b/c", data[10:15]).
func (b *DownloadedBuffer) Files(spans []FileSpan) []FileChunk {
	chunks := make([]FileChunk, 0, len(spans))
	for _, span := range spans {
		chunks = append(chunks, FileChunk{
			Path: span.Path,
			Data: b.data[span.Offset : span.Offset+span.Length],
		})
	}
	return chunks
}

// --------------------------------------------------------------------------------------------- //

// FileWriter persists one FileChunk to its final destination. Resuming a
// partial download is an explicit non-goal (spec.md §1), so implementations
// need not support partial/appended writes — each call receives the
// chunk's complete bytes.
//
// This indirection (absent from spec.md, added per SPEC_FULL.md §12) lets
// tests use an in-memory sink while the CLI uses real files, without the
// assembler itself depending on an output directory or *os.File.
type FileWriter interface {
	WriteFile(chunk FileChunk) error
}

// OSFileWriter writes each chunk to outputDir/chunk.Path, creating parent
// directories as needed.
//
// Grounded on the teacher's torrent/p2p.go:StartDownload, which opens each
// output file with os.OpenFile(os.O_RDWR|os.O_CREATE) and Truncates it to
// size before writing; this writer does the equivalent in one WriteFile
// call per file, since the assembler has the whole file's bytes at once
// once the torrent is fully downloaded.
type OSFileWriter struct {
	OutputDir string
}

func (w OSFileWriter) WriteFile(chunk FileChunk) error {
	fullPath := filepath.Join(w.OutputDir, chunk.Path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", fullPath, err)
	}

	f, err := os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", fullPath, err)
	}
	defer f.Close()

	if _, err := f.Write(chunk.Data); err != nil {
		return fmt.Errorf("writing %s: %w", fullPath, err)
	}

	return nil
}

// MemoryFileWriter collects written chunks in memory, keyed by path. Used
// by tests in place of real file I/O.
type MemoryFileWriter struct {
	Files map[string][]byte
}

func NewMemoryFileWriter() *MemoryFileWriter {
	return &MemoryFileWriter{Files: make(map[string][]byte)}
}

func (w *MemoryFileWriter) WriteFile(chunk FileChunk) error {
	buf := make([]byte, len(chunk.Data))
	copy(buf, chunk.Data)
	w.Files[chunk.Path] = buf
	return nil
}

// WriteAll persists every file span of buf via w, in span order.
func WriteAll(buf *DownloadedBuffer, spans []FileSpan, w FileWriter) error {
	for _, chunk := range buf.Files(spans) {
		if err := w.WriteFile(chunk); err != nil {
			return err
		}
	}
	return nil
}
