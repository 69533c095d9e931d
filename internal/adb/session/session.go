// Package session drives the ADB CNXN/AUTH handshake and, once connected,
// hands the stream layer its transport, the negotiated max_data and fresh
// local stream ids.
package session

import (
	"fmt"

	"github.com/marmos91/adbpush/internal/adb/adbkey"
	"github.com/marmos91/adbpush/internal/adb/proto"
	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/marmos91/adbpush/internal/logger"
)

// AUTH arg0 subtypes, per the ADB wire protocol.
const (
	authToken       uint32 = 1
	authSignature   uint32 = 2
	authRSAPublicKey uint32 = 3
)

// MinMaxData is the smallest max_data the session will accept from a peer;
// values below this are clamped up.
const MinMaxData = 256

// localMaxData is the payload size this client advertises in its own CNXN.
const localMaxData = 4096

// versionA1 is the protocol version this client speaks in CNXN.arg0.
const versionA1 = 0x01000000

// rawTransport is the minimal surface Session needs from the transport
// layer, satisfied by *transport.Transport and, in tests, by a net.Conn
// adapter. ReceiveExact is the same exact-length primitive proto.ReadPacketExact
// builds framing on.
type rawTransport interface {
	Send([]byte) error
	ReceiveExact(n int) ([]byte, error)
	Close() error
}

// Session represents one authenticated ADB connection: the transport, the
// negotiated max_data, the monotonic local stream-id counter, and the RSA
// key used for AUTH.
type Session struct {
	transport   rawTransport
	key         *adbkey.Key
	maxData     uint32
	nextLocalID uint32
	systemInfo  string
}

// MaxData returns the negotiated maximum outgoing payload size.
func (s *Session) MaxData() uint32 { return s.maxData }

// NextLocalID allocates and returns the next stream local id.
func (s *Session) NextLocalID() uint32 {
	s.nextLocalID++
	return s.nextLocalID
}

// Transport exposes the underlying transport to the stream layer.
func (s *Session) Transport() rawTransport { return s.transport }

// SystemInfo is the banner text the peer sent back in its CNXN reply
// (e.g. "device::ro.product.name=...").
func (s *Session) SystemInfo() string { return s.systemInfo }

// Handshake performs the CNXN/AUTH exchange described in the ADB transport
// protocol: send CNXN, then loop on AUTH challenges (signature first,
// public key second) until the peer replies with its own CNXN.
func Handshake(t rawTransport, key *adbkey.Key) (*Session, error) {
	s := &Session{transport: t, key: key, maxData: localMaxData, nextLocalID: 0}

	cnxn := &proto.Packet{
		Command: proto.CNXN,
		Arg0:    versionA1,
		Arg1:    localMaxData,
		Data:    []byte("host::\x00"),
	}
	if err := s.send(cnxn); err != nil {
		return nil, err
	}

	signatureSent := false
	publicKeySent := false

	for {
		pkt, err := proto.ReadPacketExact(s.transport)
		if err != nil {
			return nil, err
		}

		switch pkt.Command {
		case proto.CNXN:
			if pkt.Arg1 < MinMaxData {
				s.maxData = MinMaxData
			} else {
				s.maxData = pkt.Arg1
			}
			s.systemInfo = string(pkt.Data)
			logger.Info("adb handshake complete", logger.KeyMaxData, s.maxData)
			return s, nil

		case proto.AUTH:
			if pkt.Arg0 != authToken {
				continue
			}

			if !signatureSent {
				sig, signErr := key.Sign(pkt.Data)
				if signErr != nil {
					return nil, signErr
				}
				if err := s.send(&proto.Packet{Command: proto.AUTH, Arg0: authSignature, Data: sig}); err != nil {
					return nil, err
				}
				signatureSent = true
				continue
			}

			if !publicKeySent {
				// Signature already tried and the device asked again:
				// fall back to offering the public key, which triggers a
				// user-visible authorization prompt on the device.
				pubLine := append([]byte(key.PublicKeyLine()), 0x00)
				if err := s.send(&proto.Packet{Command: proto.AUTH, Arg0: authRSAPublicKey, Data: pubLine}); err != nil {
					return nil, err
				}
				publicKeySent = true
				continue
			}

			// Both the signature and the public key have already been
			// offered and rejected: no path forward remains.
			return nil, adberrors.New(adberrors.AuthenticationFailed, "device rejected both signature and public key")

		default:
			// Background chatter unrelated to the handshake is ignored.
			continue
		}
	}
}

func (s *Session) send(p *proto.Packet) error {
	return s.transport.Send(proto.Encode(p))
}

// String renders a short session summary, useful for CLI result output.
func (s *Session) String() string {
	return fmt.Sprintf("session(max_data=%d)", s.maxData)
}
