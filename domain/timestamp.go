package domain

import (
	"sync/atomic"
	"time"
)

var lastTimestamp atomic.Int64

// NextTimestamp returns a strictly increasing nanosecond timestamp, even when the wall
// clock stalls or steps backwards.
func NextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := lastTimestamp.Load()
		if now <= last {
			now = last + 1
		}
		if lastTimestamp.CompareAndSwap(last, now) {
			return now
		}
	}
}
