// Package bufpool provides a tiered buffer pool for efficient memory reuse
// across the ADB transport, stream and SYNC layers.
//
// # Design Rationale
//
// The pool uses three size tiers to balance memory efficiency with reuse:
//   - Small buffers (default 64B): packet headers and OKAY/CLSE control frames
//   - Medium buffers (default 64KB): typical negotiated max_data payloads
//   - Large buffers (default 1MB): SYNC DATA chunks and ZIP inflate scratch space
//
// Buffers larger than the large tier are allocated directly and not pooled,
// to avoid keeping very large buffers resident indefinitely.
//
// # Thread Safety
//
// All operations are safe for concurrent use via sync.Pool, though a single
// Session is not meant to be driven from more than one goroutine at a time
// (see internal/adb/session).
//
// # Usage
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
//	// ... use buf ...
package bufpool

import "sync"

// Default buffer size classes. Override with NewPool for a custom pool.
const (
	// DefaultSmallSize covers packet headers and zero-payload control frames.
	DefaultSmallSize = 64

	// DefaultMediumSize covers a typical negotiated max_data payload.
	DefaultMediumSize = 64 << 10

	// DefaultLargeSize covers SYNC DATA chunks and inflate scratch buffers.
	DefaultLargeSize = 1 << 20
)

// Pool manages byte-slice pools organized by size class, selecting the
// appropriate tier for a requested size and falling back to a direct
// allocation for oversized requests.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config configures a custom Pool.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default tier sizes.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// NewPool creates a Pool from cfg, applying defaults for zero fields. A nil
// cfg uses DefaultConfig entirely.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}

	if cfg.SmallSize <= 0 {
		cfg.SmallSize = DefaultSmallSize
	}
	if cfg.MediumSize <= 0 {
		cfg.MediumSize = DefaultMediumSize
	}
	if cfg.LargeSize <= 0 {
		cfg.LargeSize = DefaultLargeSize
	}

	p := &Pool{
		smallSize:  cfg.SmallSize,
		mediumSize: cfg.MediumSize,
		largeSize:  cfg.LargeSize,
	}

	p.small = sync.Pool{New: func() any { buf := make([]byte, p.smallSize); return &buf }}
	p.medium = sync.Pool{New: func() any { buf := make([]byte, p.mediumSize); return &buf }}
	p.large = sync.Pool{New: func() any { buf := make([]byte, p.largeSize); return &buf }}

	return p
}

// Get returns a byte slice of at least size bytes, chosen from the smallest
// tier that fits. Sizes larger than the large tier are allocated directly
// and are not pooled. The caller must call Put when done.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.mediumSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	buf := *bufPtr
	return buf[:size]
}

// Put returns buf to the pool it came from. Buffers whose capacity doesn't
// match a known tier (oversized Get results) are left for the GC.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	switch cap(buf) {
	case p.smallSize:
		fullBuf := buf[:cap(buf)]
		p.small.Put(&fullBuf)
	case p.mediumSize:
		fullBuf := buf[:cap(buf)]
		p.medium.Put(&fullBuf)
	case p.largeSize:
		fullBuf := buf[:cap(buf)]
		p.large.Put(&fullBuf)
	default:
		return
	}
}

// globalPool is the package-level pool shared by all callers.
var globalPool = NewPool(nil)

// Get returns a byte slice of at least size bytes from the global pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns buf to the global pool. Always pair with Get via defer.
func Put(buf []byte) {
	globalPool.Put(buf)
}

// GetUint32 is a convenience wrapper for sizes carried as protocol uint32
// fields (max_data, SYNC chunk lengths).
func GetUint32(size uint32) []byte {
	return globalPool.Get(int(size))
}
