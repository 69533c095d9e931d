// Package transport owns the single TCP socket underlying an ADB session:
// a bounded-timeout connect, and exact-length send/receive primitives that
// every higher layer builds its framing on.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/marmos91/adbpush/internal/logger"
)

// DefaultConnectTimeout is the overall wall-clock deadline for Connect when
// the caller does not supply one.
const DefaultConnectTimeout = 8 * time.Second

// Transport is a single TCP connection to an ADB device endpoint.
type Transport struct {
	conn net.Conn
	addr string
}

// Connect dials host:port with an overall wall-clock timeout (default
// DefaultConnectTimeout if timeout <= 0). Transient "connection in
// progress" states are tolerated until the dialer itself reports ready,
// failed, or the deadline fires.
func Connect(ctx context.Context, host string, port int, timeout time.Duration) (*Transport, error) {
	if host == "" {
		return nil, adberrors.New(adberrors.InvalidHost, "empty host")
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, adberrors.Wrap(adberrors.ConnectionTimeout, addr, err)
		}
		return nil, adberrors.Wrap(adberrors.InvalidHost, addr, err)
	}

	logger.Debug("transport connected", logger.KeyDevice, addr)
	return &Transport{conn: conn, addr: addr}, nil
}

// Send writes all of data to the connection, suspending the caller until
// either every byte is accepted by the OS or a write error occurs.
func (t *Transport) Send(data []byte) error {
	if _, err := t.conn.Write(data); err != nil {
		return adberrors.Wrap(adberrors.ConnectionClosed, t.addr, err)
	}
	return nil
}

// ReceiveExact reads exactly n bytes, or fails with ConnectionClosed if the
// peer closes the connection (or any other I/O error occurs) first.
func (t *Transport) ReceiveExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return nil, adberrors.Wrap(adberrors.ConnectionClosed, t.addr, err)
	}
	return buf, nil
}

// Close shuts down the underlying connection. It is safe to call more than
// once; subsequent calls return the net package's "already closed" error,
// which callers may ignore.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Addr returns the remote address this transport was connected to.
func (t *Transport) Addr() string {
	return t.addr
}
