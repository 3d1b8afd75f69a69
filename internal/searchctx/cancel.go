package searchctx

import "sync/atomic"

// Cancel is a shared, cooperatively-polled cancellation flag. The zero
// value is safe to use and starts unset.
type Cancel struct {
	flag atomic.Bool
}

// Set marks the flag as cancelled. Safe for concurrent use.
func (c *Cancel) Set() { c.flag.Store(true) }

// IsSet reports whether the flag has been set.
func (c *Cancel) IsSet() bool { return c.flag.Load() }
