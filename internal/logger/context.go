package logger

import "context"

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped fields for the device conversation
// currently in flight: which device, which SYNC/shell service, which
// stream id. It rides on a context.Context, and the *Ctx logging
// functions read it back; Session, Stream and Sync take no context and
// do not use it.
type LogContext struct {
	Device   string // host:port of the target device
	Service  string // service string opened on the current stream, e.g. "sync:"
	StreamID uint32 // local stream id, 0 if none yet
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext previously attached to ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for a device endpoint.
func NewLogContext(device string) *LogContext {
	return &LogContext{Device: device}
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithService returns a copy of lc with Service set.
func (lc *LogContext) WithService(service string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Service = service
	}
	return clone
}

// WithStreamID returns a copy of lc with StreamID set.
func (lc *LogContext) WithStreamID(id uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.StreamID = id
	}
	return clone
}
