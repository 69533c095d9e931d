package session

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"net"
	"testing"
	"time"

	"github.com/marmos91/adbpush/internal/adb/adbkey"
	"github.com/marmos91/adbpush/internal/adb/proto"
	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeTransport struct {
	conn net.Conn
}

func (p *pipeTransport) Send(b []byte) error { _, err := p.conn.Write(b); return err }
func (p *pipeTransport) ReceiveExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
func (p *pipeTransport) Close() error { return p.conn.Close() }

func newPipe() (*pipeTransport, net.Conn) {
	a, b := net.Pipe()
	return &pipeTransport{conn: a}, b
}

func testKey(t *testing.T) *adbkey.Key {
	t.Helper()
	key, err := adbkey.LoadOrCreate(t.TempDir(), "test@adbpush")
	require.NoError(t, err)
	return key
}

func readPacket(t *testing.T, peer net.Conn) *proto.Packet {
	t.Helper()
	pkt, err := proto.ReadPacket(peer)
	require.NoError(t, err)
	return pkt
}

func sendPacket(t *testing.T, peer net.Conn, p *proto.Packet) {
	t.Helper()
	_, err := peer.Write(proto.Encode(p))
	require.NoError(t, err)
}

// TestHappyHandshake covers scenario 1: the peer answers the initial CNXN
// directly with its own CNXN, no AUTH round trip.
func TestHappyHandshake(t *testing.T) {
	client, peer := newPipe()
	defer peer.Close()
	key := testKey(t)

	result := make(chan *Session, 1)
	errc := make(chan error, 1)
	go func() {
		s, err := Handshake(client, key)
		if err != nil {
			errc <- err
			return
		}
		result <- s
	}()

	cnxn := readPacket(t, peer)
	assert.Equal(t, proto.CNXN, cnxn.Command)
	assert.Equal(t, "host::\x00", string(cnxn.Data))

	sendPacket(t, peer, &proto.Packet{
		Command: proto.CNXN,
		Arg0:    versionA1,
		Arg1:    4096,
		Data:    []byte("device::ro.product=test"),
	})

	select {
	case s := <-result:
		assert.Equal(t, uint32(4096), s.MaxData())
		assert.Contains(t, s.SystemInfo(), "ro.product")
	case err := <-errc:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handshake")
	}
}

// TestAuthWithSignature covers scenario 2: the peer challenges with a
// token, the client signs it, and the peer accepts with CNXN.
func TestAuthWithSignature(t *testing.T) {
	client, peer := newPipe()
	defer peer.Close()
	key := testKey(t)

	errc := make(chan error, 1)
	go func() {
		_, err := Handshake(client, key)
		errc <- err
	}()

	_ = readPacket(t, peer) // initial CNXN

	token := make([]byte, 20)
	_, err := rand.Read(token)
	require.NoError(t, err)
	sendPacket(t, peer, &proto.Packet{Command: proto.AUTH, Arg0: authToken, Data: token})

	authReply := readPacket(t, peer)
	assert.Equal(t, proto.AUTH, authReply.Command)
	assert.Equal(t, authSignature, authReply.Arg0)

	verifyErr := rsa.VerifyPKCS1v15(key.PublicKey(), crypto.SHA1, token, authReply.Data)
	assert.NoError(t, verifyErr)

	sendPacket(t, peer, &proto.Packet{Command: proto.CNXN, Arg0: versionA1, Arg1: 4096, Data: []byte("device::")})

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handshake")
	}
}

// TestAuthWithPublicKey covers scenario 3: the device rejects the
// signature with a second token challenge, so the client falls back to
// offering its public key and waits out the device's authorization delay.
func TestAuthWithPublicKey(t *testing.T) {
	client, peer := newPipe()
	defer peer.Close()
	key := testKey(t)

	errc := make(chan error, 1)
	go func() {
		_, err := Handshake(client, key)
		errc <- err
	}()

	_ = readPacket(t, peer) // initial CNXN

	token1 := make([]byte, 20)
	sendPacket(t, peer, &proto.Packet{Command: proto.AUTH, Arg0: authToken, Data: token1})
	_ = readPacket(t, peer) // signature reply

	token2 := make([]byte, 20)
	sendPacket(t, peer, &proto.Packet{Command: proto.AUTH, Arg0: authToken, Data: token2})

	pubKeyReply := readPacket(t, peer)
	assert.Equal(t, authRSAPublicKey, pubKeyReply.Arg0)
	assert.Contains(t, string(pubKeyReply.Data), "ssh-rsa ")
	assert.Equal(t, byte(0), pubKeyReply.Data[len(pubKeyReply.Data)-1])

	// Simulate the device's user-authorization delay before it accepts.
	time.Sleep(100 * time.Millisecond)
	sendPacket(t, peer, &proto.Packet{Command: proto.CNXN, Arg0: versionA1, Arg1: 4096, Data: []byte("device::")})

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handshake")
	}
}

// TestAuthFailsWhenBothPathsExhausted covers the terminal failure case: the
// device rejects the signature, then rejects the offered public key too
// (requesting a third token), leaving no path forward.
func TestAuthFailsWhenBothPathsExhausted(t *testing.T) {
	client, peer := newPipe()
	defer peer.Close()
	key := testKey(t)

	errc := make(chan error, 1)
	go func() {
		_, err := Handshake(client, key)
		errc <- err
	}()

	_ = readPacket(t, peer) // initial CNXN

	token1 := make([]byte, 20)
	sendPacket(t, peer, &proto.Packet{Command: proto.AUTH, Arg0: authToken, Data: token1})
	_ = readPacket(t, peer) // signature reply

	token2 := make([]byte, 20)
	sendPacket(t, peer, &proto.Packet{Command: proto.AUTH, Arg0: authToken, Data: token2})
	_ = readPacket(t, peer) // public key reply

	token3 := make([]byte, 20)
	sendPacket(t, peer, &proto.Packet{Command: proto.AUTH, Arg0: authToken, Data: token3})

	select {
	case err := <-errc:
		require.Error(t, err)
		code, ok := adberrors.Code(err)
		require.True(t, ok)
		assert.Equal(t, adberrors.AuthenticationFailed, code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handshake failure")
	}
}

func TestHandshakeClampsLowMaxData(t *testing.T) {
	client, peer := newPipe()
	defer peer.Close()
	key := testKey(t)

	result := make(chan *Session, 1)
	go func() {
		s, err := Handshake(client, key)
		require.NoError(t, err)
		result <- s
	}()

	_ = readPacket(t, peer)
	sendPacket(t, peer, &proto.Packet{Command: proto.CNXN, Arg0: versionA1, Arg1: 100, Data: []byte("device::")})

	s := <-result
	assert.Equal(t, uint32(MinMaxData), s.MaxData())
}

func TestHandshakeIgnoresUnrelatedPackets(t *testing.T) {
	client, peer := newPipe()
	defer peer.Close()
	key := testKey(t)

	result := make(chan *Session, 1)
	go func() {
		s, err := Handshake(client, key)
		require.NoError(t, err)
		result <- s
	}()

	_ = readPacket(t, peer)
	sendPacket(t, peer, &proto.Packet{Command: proto.WRTE, Arg0: 1, Arg1: 2, Data: []byte("noise")})
	sendPacket(t, peer, &proto.Packet{Command: proto.CNXN, Arg0: versionA1, Arg1: 4096, Data: []byte("device::")})

	select {
	case s := <-result:
		assert.Equal(t, uint32(4096), s.MaxData())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for handshake")
	}
}
