package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/adbpush/internal/adb/adbkey"
	"github.com/marmos91/adbpush/internal/adb/install"
	"github.com/marmos91/adbpush/internal/adb/session"
	"github.com/marmos91/adbpush/internal/adb/stream"
	"github.com/marmos91/adbpush/internal/adb/transport"
	"github.com/marmos91/adbpush/internal/admetrics"
	"github.com/marmos91/adbpush/internal/config"
	"github.com/marmos91/adbpush/internal/logger"
)

// deviceSession adapts a handshaken *session.Session into install.StreamOpener,
// so the install package never needs to import session or stream directly
// (see install.go's StreamOpener doc comment).
type deviceSession struct {
	transport *transport.Transport
	session   *session.Session
	metrics   *admetrics.Metrics
}

// OpenStream opens service as a new logical stream over the session,
// allocating the next local stream id.
func (d *deviceSession) OpenStream(service string) (install.StreamConn, error) {
	s, err := stream.Open(d.session.Transport(), d.session.NextLocalID(), d.session.MaxData(), service)
	if err != nil {
		return nil, err
	}
	d.metrics.StreamOpened()
	return &meteredStream{Stream: s, metrics: d.metrics}, nil
}

// meteredStream decrements the open-stream gauge exactly once, on Close,
// wrapping the *stream.Stream returned by stream.Open.
type meteredStream struct {
	*stream.Stream
	metrics *admetrics.Metrics
	closed  bool
}

func (m *meteredStream) Close() error {
	if !m.closed {
		m.closed = true
		m.metrics.StreamClosed()
	}
	return m.Stream.Close()
}

// MaxData returns the session's negotiated maximum outgoing payload size.
func (d *deviceSession) MaxData() uint32 {
	return d.session.MaxData()
}

// Close tears down the underlying transport.
func (d *deviceSession) Close() error {
	return d.transport.Close()
}

// connectDevice dials cfg.Device, loads or creates the RSA identity at
// cfg.Key.Path, and drives the CNXN/AUTH handshake, returning a ready
// deviceSession. Public-key authorization on a never-paired device can
// block for several seconds while the user taps "Allow" on the TV; that
// wait happens inside session.Handshake and is surfaced here as-is.
func connectDevice(ctx context.Context, cfg *config.Config, metrics *admetrics.Metrics) (*deviceSession, error) {
	key, err := adbkey.LoadOrCreate(cfg.Key.Path, cfg.Key.Comment)
	if err != nil {
		return nil, err
	}

	logger.Info("connecting", "addr", deviceAddr(cfg))
	t, err := transport.Connect(ctx, cfg.Device.Host, cfg.Device.Port, cfg.Device.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sess, err := session.Handshake(t, key)
	if err != nil {
		metrics.RecordHandshake("rejected", time.Since(start).Seconds())
		_ = t.Close()
		return nil, err
	}
	metrics.RecordHandshake("ok", time.Since(start).Seconds())
	logger.Info("authenticated", "max_data", sess.MaxData())

	return &deviceSession{transport: t, session: sess, metrics: metrics}, nil
}

// deviceAddr renders a short "host:port" string for progress/result output.
func deviceAddr(cfg *config.Config) string {
	return fmt.Sprintf("%s:%d", cfg.Device.Host, cfg.Device.Port)
}
