// Package memacct implements the engine's per-executor memory accounting:
// a simple counter with a cap, whose overflow error names the cap in
// megabytes per the memory-limit-exceeded requirement.
package memacct

import (
	"github.com/c2h5oh/datasize"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
)

// Counter tracks bytes currently charged against a cap. It is private to
// one executor; no locking is required (spec §5).
type Counter struct {
	used int64
	cap  int64
}

// NewCounter builds a Counter with the given cap in bytes. A cap of zero
// means unlimited.
func NewCounter(capBytes int64) *Counter {
	return &Counter{cap: capBytes}
}

// Used returns the currently charged byte count.
func (c *Counter) Used() int64 { return c.used }

// Cap returns the configured byte cap, or 0 for unlimited.
func (c *Counter) Cap() int64 { return c.cap }

// Inc charges size bytes against the cap, returning a Memory error if doing
// so would exceed it. The counter is left unchanged on overflow.
func (c *Counter) Inc(size int64) error {
	if c.cap > 0 && c.used+size > c.cap {
		capMB := datasize.ByteSize(c.cap).MBytes()
		return queryerr.MemoryLimitExceeded(int64(capMB))
	}
	c.used += size
	return nil
}

// Dec credits back size bytes, e.g. when SORT releases a drained row or
// Reset clears a buffer. It never drives the counter negative.
func (c *Counter) Dec(size int64) {
	c.used -= size
	if c.used < 0 {
		c.used = 0
	}
}

// Baseline reports whether the counter has returned to zero, the invariant
// required on successful query drain (spec §8 law 8).
func (c *Counter) Baseline() bool { return c.used == 0 }
