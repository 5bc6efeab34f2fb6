package xid

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"sync/atomic"
	"time"
)

// fallback keeps ids distinct within a process if the system entropy source fails.
var fallback atomic.Uint64

// New returns a base-36 millisecond timestamp followed by 64 random bits,
// also in base 36, e.g. "mfx3k2a1-3w5e11264sgsg". Two calls in the same
// millisecond collide only if the random suffixes collide (p ~ 2^-64).
func New() string {
	return newAt(time.Now())
}

func newAt(at time.Time) string {
	ts := strconv.FormatInt(at.UnixMilli(), 36)

	buf := make([]byte, 8)
	var suffix uint64
	if _, err := rand.Read(buf); err != nil {
		suffix = uint64(at.UnixNano()) ^ fallback.Add(1)<<32
	} else {
		suffix = binary.BigEndian.Uint64(buf)
	}
	return ts + "-" + strconv.FormatUint(suffix, 36)
}
