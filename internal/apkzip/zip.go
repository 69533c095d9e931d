// Package apkzip reads just enough of the ZIP format to locate a
// launcher-icon entry inside an APK and decompress it, without using
// archive/zip or compress/flate: the end-of-central-directory scan, the
// central directory, and a raw DEFLATE decoder are all hand-written here,
// following the same fixed-offset binary parsing style the rest of this
// codebase uses for its other wire formats.
package apkzip

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/marmos91/adbpush/internal/adberrors"
)

// ZIP record signatures, little-endian 32-bit magics.
const (
	sigEOCD          = 0x06054b50
	sigCentralDir     = 0x02014b50
	sigLocalHeader    = 0x04034b50
)

// maxEOCDSearch bounds the tail read used to locate the EOCD record: 22
// fixed bytes plus the maximum possible comment length.
const maxEOCDSearch = 22 + 65535

// Compression methods this extractor understands; anything else yields no
// result for that entry.
const (
	methodStored  = 0
	methodDeflate = 8
)

// CentralEntry is one parsed central-directory record.
type CentralEntry struct {
	Name               string
	Compression        uint16
	CompressedSize     uint32
	UncompressedSize   uint32
	LocalHeaderOffset  uint32
}

// eocd holds the fields of the end-of-central-directory record this
// extractor needs.
type eocd struct {
	totalEntries      uint16
	centralDirSize    uint32
	centralDirOffset  uint32
}

// findEOCD reads up to maxEOCDSearch bytes from the tail of r (whose total
// size is size) and scans backward for sigEOCD, parsing the fixed fields
// that follow it.
func findEOCD(r io.ReaderAt, size int64) (*eocd, error) {
	readLen := int64(maxEOCDSearch)
	if readLen > size {
		readLen = size
	}

	buf := make([]byte, readLen)
	if _, err := r.ReadAt(buf, size-readLen); err != nil && err != io.EOF {
		return nil, adberrors.Wrap(adberrors.ProtocolError, "read eocd tail", err)
	}

	for i := len(buf) - 22; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:i+4]) == sigEOCD {
			return &eocd{
				totalEntries:     binary.LittleEndian.Uint16(buf[i+10 : i+12]),
				centralDirSize:   binary.LittleEndian.Uint32(buf[i+12 : i+16]),
				centralDirOffset: binary.LittleEndian.Uint32(buf[i+16 : i+20]),
			}, nil
		}
	}

	return nil, adberrors.New(adberrors.ProtocolError, "end-of-central-directory record not found")
}

// centralDirFixedSize is the length of a central-directory record's fixed
// fields, before the variable-length name/extra/comment.
const centralDirFixedSize = 46

// parseCentralDirectory reads eocd.centralDirSize bytes starting at
// eocd.centralDirOffset and parses every record, truncating to
// eocd.totalEntries if the declared count is smaller than what parsing
// would otherwise find.
func parseCentralDirectory(r io.ReaderAt, e *eocd) ([]CentralEntry, error) {
	buf := make([]byte, e.centralDirSize)
	if _, err := r.ReadAt(buf, int64(e.centralDirOffset)); err != nil && err != io.EOF {
		return nil, adberrors.Wrap(adberrors.ProtocolError, "read central directory", err)
	}

	var entries []CentralEntry
	pos := 0
	for pos+centralDirFixedSize <= len(buf) {
		if binary.LittleEndian.Uint32(buf[pos:pos+4]) != sigCentralDir {
			return nil, adberrors.New(adberrors.ProtocolError, "bad central directory signature")
		}

		compression := binary.LittleEndian.Uint16(buf[pos+10 : pos+12])
		compressedSize := binary.LittleEndian.Uint32(buf[pos+20 : pos+24])
		uncompressedSize := binary.LittleEndian.Uint32(buf[pos+24 : pos+28])
		nameLen := int(binary.LittleEndian.Uint16(buf[pos+28 : pos+30]))
		extraLen := int(binary.LittleEndian.Uint16(buf[pos+30 : pos+32]))
		commentLen := int(binary.LittleEndian.Uint16(buf[pos+32 : pos+34]))
		localHeaderOffset := binary.LittleEndian.Uint32(buf[pos+42 : pos+46])

		nameStart := pos + centralDirFixedSize
		if nameStart+nameLen > len(buf) {
			return nil, adberrors.New(adberrors.ProtocolError, "central directory name overruns buffer")
		}
		name := string(buf[nameStart : nameStart+nameLen])

		entries = append(entries, CentralEntry{
			Name:              name,
			Compression:       compression,
			CompressedSize:    compressedSize,
			UncompressedSize:  uncompressedSize,
			LocalHeaderOffset: localHeaderOffset,
		})

		pos = nameStart + nameLen + extraLen + commentLen

		if e.totalEntries > 0 && len(entries) >= int(e.totalEntries) {
			break
		}
	}

	return entries, nil
}

// localHeaderFixedSize is the length of a local file header's fixed
// fields, before the variable-length name/extra.
const localHeaderFixedSize = 30

// readEntry resolves entry's local header, using its name/extra lengths to
// find the data offset, reads the entry's compressed bytes and returns its
// contents (inflated when the entry is deflated).
func readEntry(r io.ReaderAt, entry CentralEntry) ([]byte, error) {
	header := make([]byte, localHeaderFixedSize)
	if _, err := r.ReadAt(header, int64(entry.LocalHeaderOffset)); err != nil {
		return nil, adberrors.Wrap(adberrors.ProtocolError, "read local header", err)
	}

	if binary.LittleEndian.Uint32(header[0:4]) != sigLocalHeader {
		return nil, adberrors.New(adberrors.ProtocolError, "bad local header signature")
	}

	nameLen := int(binary.LittleEndian.Uint16(header[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(header[28:30]))

	dataOffset := int64(entry.LocalHeaderOffset) + localHeaderFixedSize + int64(nameLen) + int64(extraLen)

	compressed := make([]byte, entry.CompressedSize)
	if _, err := r.ReadAt(compressed, dataOffset); err != nil && err != io.EOF {
		return nil, adberrors.Wrap(adberrors.ProtocolError, "read entry data", err)
	}

	switch entry.Compression {
	case methodStored:
		return compressed, nil
	case methodDeflate:
		return inflateRaw(compressed, int(entry.UncompressedSize))
	default:
		return nil, adberrors.New(adberrors.ProtocolError, "unsupported compression method")
	}
}

// ExtractIcon opens path as a ZIP archive (an APK) and returns the bytes
// of the best launcher-icon candidate per the scoring rules in score.go.
// It returns (nil, nil) if no icon-like entry is found.
func ExtractIcon(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, adberrors.Wrap(adberrors.ProtocolError, "open apk", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, adberrors.Wrap(adberrors.ProtocolError, "stat apk", err)
	}

	e, err := findEOCD(f, info.Size())
	if err != nil {
		return nil, err
	}

	entries, err := parseCentralDirectory(f, e)
	if err != nil {
		return nil, err
	}

	candidate, ok := pickIconCandidate(entries)
	if !ok {
		return nil, nil
	}

	return readEntry(f, candidate)
}
