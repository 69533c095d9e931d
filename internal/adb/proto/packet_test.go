package proto

import (
	"bytes"
	"testing"

	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Packet{Command: WRTE, Arg0: 3, Arg1: 17, Data: []byte("hello\n")}

	frame := Encode(p)
	decoded, err := Decode(frame)
	require.NoError(t, err)

	assert.Equal(t, p.Command, decoded.Command)
	assert.Equal(t, p.Arg0, decoded.Arg0)
	assert.Equal(t, p.Arg1, decoded.Arg1)
	assert.Equal(t, p.Data, decoded.Data)
}

func TestEncodeThenDecodeIsIdentityOnBytes(t *testing.T) {
	p := &Packet{Command: CNXN, Arg0: 0x01000000, Arg1: 4096, Data: []byte("host::\x00")}
	frame := Encode(p)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	reEncoded := Encode(decoded)

	assert.Equal(t, frame, reEncoded)
}

func TestMagicInvariant(t *testing.T) {
	frame := Encode(&Packet{Command: OKAY})
	magic := uint32(frame[20]) | uint32(frame[21])<<8 | uint32(frame[22])<<16 | uint32(frame[23])<<24
	assert.Equal(t, uint32(OKAY)^0xFFFFFFFF, magic)
}

func TestChecksumInvariant(t *testing.T) {
	data := []byte{1, 2, 3, 255}
	frame := Encode(&Packet{Command: WRTE, Data: data})
	sum := uint32(frame[16]) | uint32(frame[17])<<8 | uint32(frame[18])<<16 | uint32(frame[19])<<24
	assert.Equal(t, uint32(1+2+3+255), uint32(sum))
}

func TestDecodeRejectsInvalidMagic(t *testing.T) {
	frame := Encode(&Packet{Command: CLSE})
	frame[20] ^= 0xFF // corrupt the magic

	_, err := Decode(frame)
	require.Error(t, err)
	code, ok := adberrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, adberrors.ProtocolError, code)
}

func TestDecodeRejectsUnknownCommand(t *testing.T) {
	header := make([]byte, HeaderSize)
	// A command value with no matching case, magic set consistently so
	// only the command-validity check trips.
	bogus := uint32(0x11111111)
	header[0], header[1], header[2], header[3] = byte(bogus), byte(bogus>>8), byte(bogus>>16), byte(bogus>>24)
	magic := bogus ^ 0xFFFFFFFF
	header[20], header[21], header[22], header[23] = byte(magic), byte(magic>>8), byte(magic>>16), byte(magic>>24)

	_, _, err := DecodeHeader(header)
	require.Error(t, err)
	code, ok := adberrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, adberrors.ProtocolError, code)
}

func TestDecodeDoesNotVerifyChecksumOnRead(t *testing.T) {
	p := &Packet{Command: WRTE, Data: []byte{9, 9, 9}}
	frame := Encode(p)
	// Zero the checksum field, as a modern peer may.
	frame[16], frame[17], frame[18], frame[19] = 0, 0, 0, 0

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9}, decoded.Data)
}

func TestReadPacketFromStream(t *testing.T) {
	p := &Packet{Command: OPEN, Arg0: 1, Data: []byte("shell:echo hi\x00")}
	frame := Encode(p)

	r := bytes.NewReader(frame)
	decoded, err := ReadPacket(r)
	require.NoError(t, err)
	assert.Equal(t, p.Command, decoded.Command)
	assert.Equal(t, p.Data, decoded.Data)
}

func TestReadPacketShortHeaderIsConnectionClosed(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2, 3})
	_, err := ReadPacket(r)
	require.Error(t, err)
	code, ok := adberrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, adberrors.ConnectionClosed, code)
}

// fakeExactReceiver serves fixed-size reads off a single byte slice, the
// same contract *transport.Transport's ReceiveExact honors.
type fakeExactReceiver struct {
	data []byte
}

func (f *fakeExactReceiver) ReceiveExact(n int) ([]byte, error) {
	if n > len(f.data) {
		return nil, adberrors.New(adberrors.ConnectionClosed, "short read")
	}
	out := f.data[:n]
	f.data = f.data[n:]
	return out, nil
}

func TestReadPacketExactFromReceiver(t *testing.T) {
	p := &Packet{Command: OPEN, Arg0: 1, Data: []byte("shell:echo hi\x00")}
	frame := Encode(p)

	decoded, err := ReadPacketExact(&fakeExactReceiver{data: frame})
	require.NoError(t, err)
	assert.Equal(t, p.Command, decoded.Command)
	assert.Equal(t, p.Data, decoded.Data)
}

func TestReadPacketExactShortHeaderPropagatesError(t *testing.T) {
	_, err := ReadPacketExact(&fakeExactReceiver{data: []byte{1, 2, 3}})
	require.Error(t, err)
	code, ok := adberrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, adberrors.ConnectionClosed, code)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "CNXN", CNXN.String())
	assert.Equal(t, "WRTE", WRTE.String())
	assert.Equal(t, "????", Command(0).String())
}
