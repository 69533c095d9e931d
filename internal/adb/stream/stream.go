// Package stream implements the OPEN/WRTE/OKAY/CLSE layer: one named
// service channel multiplexed over a session's single transport, with
// strict stream-id matching and mandatory write-acknowledgement.
package stream

import (
	"bytes"

	"github.com/marmos91/adbpush/internal/adb/proto"
	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/marmos91/adbpush/internal/logger"
)

// transport is the surface Stream needs: sending raw frames and reading
// exact-length chunks off the wire. The value returned by
// (*session.Session).Transport() satisfies it; Open takes the pieces directly so
// this package never imports session (avoiding an import cycle, since
// session is the lower layer stream sits on top of).
type transport interface {
	Send([]byte) error
	ReceiveExact(n int) ([]byte, error)
}

// Stream is one open ADB service channel.
type Stream struct {
	t          transport
	localID    uint32
	remoteID   uint32
	maxData    uint32
	readBuf    bytes.Buffer
	closed     bool
}

// Open sends OPEN for service over t using localID (allocated by the
// caller's session), then waits for the peer's OKAY (yielding remoteID)
// or CLSE (service rejected).
func Open(t transport, localID uint32, maxData uint32, service string) (*Stream, error) {
	openPkt := &proto.Packet{
		Command: proto.OPEN,
		Arg0:    localID,
		Arg1:    0,
		Data:    append([]byte(service), 0x00),
	}
	if err := t.Send(proto.Encode(openPkt)); err != nil {
		return nil, err
	}

	s := &Stream{t: t, localID: localID, maxData: maxData}

	for {
		pkt, err := proto.ReadPacketExact(t)
		if err != nil {
			return nil, err
		}

		switch pkt.Command {
		case proto.OKAY:
			if pkt.Arg1 != localID {
				continue
			}
			s.remoteID = pkt.Arg0
			logger.Debug("stream opened", logger.KeyService, service, logger.KeyStreamID, localID, logger.KeyRemoteID, s.remoteID)
			return s, nil

		case proto.CLSE:
			if pkt.Arg1 != localID {
				continue
			}
			return nil, adberrors.New(adberrors.StreamClosed, "service rejected: "+service)

		default:
			continue
		}
	}
}

// LocalID returns the stream's local id.
func (s *Stream) LocalID() uint32 { return s.localID }

// RemoteID returns the stream's peer-assigned remote id.
func (s *Stream) RemoteID() uint32 { return s.remoteID }

// Read returns up to len(p) bytes already buffered from prior WRTE
// packets, pulling and acknowledging more WRTE packets from the session
// when the buffer is empty. Once CLSE has arrived (or the stream was closed)
// and the buffer is drained, it returns a StreamClosed error, not io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	for s.readBuf.Len() == 0 && !s.closed {
		if err := s.pump(); err != nil {
			return 0, err
		}
	}

	if s.readBuf.Len() == 0 {
		return 0, adberrors.New(adberrors.StreamClosed, "")
	}

	return s.readBuf.Read(p)
}

// ReadAll drains the stream until CLSE, returning everything written to it.
// This is the shape the install workflow's shell commands use: run a
// command, collect its full stdout, then observe the close.
func (s *Stream) ReadAll() ([]byte, error) {
	var out bytes.Buffer
	for !s.closed {
		if err := s.pump(); err != nil {
			return out.Bytes(), err
		}
		out.Write(s.readBuf.Bytes())
		s.readBuf.Reset()
	}
	return out.Bytes(), nil
}

// pump reads one more packet addressed to this stream, buffering WRTE
// payloads (and acking them) or recording CLSE. Packets with mismatched
// ids are silently dropped, per the single-stream concurrency model.
func (s *Stream) pump() error {
	pkt, err := proto.ReadPacketExact(s.t)
	if err != nil {
		return err
	}

	switch pkt.Command {
	case proto.WRTE:
		if pkt.Arg0 != s.remoteID || pkt.Arg1 != s.localID {
			return nil
		}
		s.readBuf.Write(pkt.Data)
		return s.ack()

	case proto.CLSE:
		if pkt.Arg0 != s.remoteID || pkt.Arg1 != s.localID {
			return nil
		}
		s.closed = true
		ack := &proto.Packet{Command: proto.CLSE, Arg0: s.localID, Arg1: s.remoteID}
		return s.t.Send(proto.Encode(ack))

	default:
		return nil
	}
}

func (s *Stream) ack() error {
	okay := &proto.Packet{Command: proto.OKAY, Arg0: s.localID, Arg1: s.remoteID}
	return s.t.Send(proto.Encode(okay))
}

// Write sends one WRTE frame, whose payload must be at most maxData bytes,
// then blocks until the matching OKAY arrives. Any WRTE the peer sends
// while waiting is buffered and ack'd like a normal Read would. A CLSE
// received during this wait is fatal for the stream.
func (s *Stream) Write(data []byte) error {
	if uint32(len(data)) > s.maxData {
		return adberrors.New(adberrors.ProtocolError, "payload exceeds max_data")
	}

	wrte := &proto.Packet{Command: proto.WRTE, Arg0: s.localID, Arg1: s.remoteID, Data: data}
	if err := s.t.Send(proto.Encode(wrte)); err != nil {
		return err
	}

	for {
		pkt, err := proto.ReadPacketExact(s.t)
		if err != nil {
			return err
		}

		switch pkt.Command {
		case proto.OKAY:
			if pkt.Arg0 == s.remoteID && pkt.Arg1 == s.localID {
				return nil
			}
			continue

		case proto.WRTE:
			if pkt.Arg0 != s.remoteID || pkt.Arg1 != s.localID {
				continue
			}
			s.readBuf.Write(pkt.Data)
			if err := s.ack(); err != nil {
				return err
			}
			continue

		case proto.CLSE:
			if pkt.Arg0 != s.remoteID || pkt.Arg1 != s.localID {
				continue
			}
			s.closed = true
			return adberrors.New(adberrors.StreamClosed, "peer closed during write")

		default:
			continue
		}
	}
}

// Close sends CLSE with an empty payload. It is idempotent: a stream
// already closed by the peer simply stops reading afterward.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	clse := &proto.Packet{Command: proto.CLSE, Arg0: s.localID, Arg1: s.remoteID}
	return s.t.Send(proto.Encode(clse))
}

// Closed reports whether the peer has sent CLSE (or this side closed).
func (s *Stream) Closed() bool {
	return s.closed
}
