package scheduler

import (
	"sync/atomic"
	"time"
)

// Alert is a notification shown inside the app instead of by the platform.
type Alert struct {
	Title string
	Body  string
	Tag   string
	At    time.Time
}

type Alerter interface {
	Alert(a Alert)
}

// ChannelAlerter publishes alerts on a buffered channel. A full channel
// drops the alert rather than block the scheduler.
type ChannelAlerter struct {
	ch      chan Alert
	dropped uint64
}

func NewChannelAlerter(bufferSize int) *ChannelAlerter {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &ChannelAlerter{ch: make(chan Alert, bufferSize)}
}

func (c *ChannelAlerter) Alert(a Alert) {
	select {
	case c.ch <- a:
	default:
		atomic.AddUint64(&c.dropped, 1)
	}
}

func (c *ChannelAlerter) C() <-chan Alert {
	return c.ch
}

func (c *ChannelAlerter) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}
