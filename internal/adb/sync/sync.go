// Package sync implements ADB's SYNC sub-protocol: SEND/DATA/DONE/OKAY/FAIL
// framing for pushing a local file into a device path, layered inside a
// stream opened with service "sync:".
package sync

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/marmos91/adbpush/internal/logger"
	"github.com/marmos91/adbpush/pkg/bufpool"
)

// SYNC frame identifiers, four ASCII bytes each.
var (
	idSEND = [4]byte{'S', 'E', 'N', 'D'}
	idDATA = [4]byte{'D', 'A', 'T', 'A'}
	idDONE = [4]byte{'D', 'O', 'N', 'E'}
	idOKAY = [4]byte{'O', 'K', 'A', 'Y'}
	idFAIL = [4]byte{'F', 'A', 'I', 'L'}
)

// ProgressCallback is invoked periodically during an upload and once on
// completion. sent and total are byte counts; total is the fileSize passed
// to Upload (-1 if unknown).
type ProgressCallback func(sent, total int64)

// streamConn is the surface Upload needs from the enclosing stream: a
// flow-controlled Write (which itself waits out the stream-level OKAY) and
// a Read for the SYNC-level terminal reply.
type streamConn interface {
	Write([]byte) error
	Read([]byte) (int, error)
}

// chunkSize returns the largest power-of-two no greater than maxData-8,
// the SYNC frame's header overhead (4-byte id + 4-byte length).
func chunkSize(maxData uint32) int {
	limit := maxData - 8
	size := uint32(1)
	for size*2 <= limit {
		size *= 2
	}
	return int(size)
}

// progressInterval is the minimum reporting cadence: at least every
// max(512KiB, fileSize/20) bytes.
func progressInterval(fileSize int64) int64 {
	interval := fileSize / 20
	if interval < 512*1024 {
		interval = 512 * 1024
	}
	return interval
}

// frame builds one SYNC frame: 4-byte id, 4-byte little-endian length,
// then payload.
func frame(id [4]byte, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	copy(buf[0:4], id[:])
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return buf
}

// Upload pushes r (fileSize bytes, or -1 if unknown) to remotePath on the
// device with the given octal mode, over an already-open sync: stream.
// progress, if non-nil, is called at the cadence described in SYNC's
// progress contract and once more on completion.
func Upload(conn streamConn, r io.Reader, fileSize int64, remotePath string, mode uint32, maxData uint32, progress ProgressCallback) error {
	logger.Debug("sync upload starting", logger.KeyRemotePath, remotePath, logger.KeyTotalBytes, fileSize)

	sendPayload := []byte(fmt.Sprintf("%s,%o", remotePath, mode))
	if err := conn.Write(frame(idSEND, sendPayload)); err != nil {
		return err
	}

	chunk := chunkSize(maxData)
	buf := bufpool.GetUint32(uint32(chunk))
	defer bufpool.Put(buf)
	var sent int64
	var sinceLastReport int64
	interval := progressInterval(fileSize)

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if err := conn.Write(frame(idDATA, buf[:n])); err != nil {
				return err
			}
			sent += int64(n)
			sinceLastReport += int64(n)
			if progress != nil && sinceLastReport >= interval {
				progress(sent, fileSize)
				sinceLastReport = 0
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return adberrors.Wrap(adberrors.SyncFailed, "read local file", readErr)
		}
	}

	if err := conn.Write(doneFrame()); err != nil {
		return err
	}

	if progress != nil {
		progress(sent, fileSize)
	}

	if err := readTerminal(conn); err != nil {
		return err
	}

	logger.Debug("sync upload complete", logger.KeyRemotePath, remotePath, logger.KeyBytesSent, sent)
	return nil
}

// doneFrame builds the DONE frame, whose "length" field is overloaded to
// carry mtime instead of a byte count.
func doneFrame() []byte {
	buf := make([]byte, 8)
	copy(buf[0:4], idDONE[:])
	binary.LittleEndian.PutUint32(buf[4:8], uint32(doneMtime()))
	return buf
}

// doneMtime returns the modification time DONE reports. A fixed value
// (rather than time.Now) keeps SYNC framing deterministic for callers that
// care about byte-for-byte reproducibility; ADB does not interpret this
// value beyond setting the pushed file's mtime.
var doneMtime = func() int64 { return 0 }

// readTerminal reads the final OKAY/FAIL reply. OKAY carries no length
// field; FAIL is followed by a 4-byte length and a message.
func readTerminal(conn streamConn) error {
	header := make([]byte, 4)
	if _, err := io.ReadFull(readerFunc(conn.Read), header); err != nil {
		return adberrors.Wrap(adberrors.SyncFailed, "read terminal reply", err)
	}

	switch [4]byte(header) {
	case idOKAY:
		return nil

	case idFAIL:
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(readerFunc(conn.Read), lenBuf); err != nil {
			return adberrors.Wrap(adberrors.SyncFailed, "read FAIL length", err)
		}
		msgLen := binary.LittleEndian.Uint32(lenBuf)
		msg := make([]byte, msgLen)
		if _, err := io.ReadFull(readerFunc(conn.Read), msg); err != nil {
			return adberrors.Wrap(adberrors.SyncFailed, "read FAIL message", err)
		}
		return adberrors.New(adberrors.SyncFailed, string(msg))

	default:
		return adberrors.New(adberrors.InvalidResponse, fmt.Sprintf("unexpected terminal id %q", header))
	}
}

// readerFunc adapts a bound Read method to io.Reader.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
