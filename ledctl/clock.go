package ledctl

import "time"

// Clock is the time source consumed by a Controller: a monotonic millisecond
// counter. The counter may wrap around; all elapsed-time arithmetic in this
// package is modular over the full uint32 range.
type Clock interface {
	NowMillis() uint32
}

type systemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock backed by the monotonic system clock. The
// counter starts at zero and wraps after about 49 days.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) NowMillis() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}
