package adapter

import "sync/atomic"

// versionClock hands out acknowledgement versions.
//
// Versions start at 1 and strictly increase for the lifetime of one
// Adapter. Safe for concurrent use.
type versionClock struct {
	v atomic.Uint64
}

// newVersionClock creates a clock whose first Next returns start+1.
func newVersionClock(start uint64) *versionClock {
	c := &versionClock{}
	c.v.Store(start)
	return c
}

// Next returns the next version.
func (c *versionClock) Next() uint64 {
	return c.v.Add(1)
}

// Current returns the last version handed out, or the start value.
func (c *versionClock) Current() uint64 {
	return c.v.Load()
}
