package storage

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastOrderID int64

// NewOrderID returns an order ID derived from the current Unix time in
// milliseconds. IDs issued by one process are strictly increasing.
func NewOrderID() string {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastOrderID)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastOrderID, last, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}

// uniqueOrderID returns id, or the closest following ID not in taken.
// Two participants submitting in the same millisecond would otherwise share an ID.
func uniqueOrderID(id string, taken map[string]bool) string {
	if !taken[id] {
		return id
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		for {
			n++
			next := strconv.FormatInt(n, 10)
			if !taken[next] {
				return next
			}
		}
	}
	for i := 2; ; i++ {
		next := id + "-" + strconv.Itoa(i)
		if !taken[next] {
			return next
		}
	}
}

// nextOrderID bumps id past a collision reported by an atomic appender.
func nextOrderID(id string) string {
	return uniqueOrderID(id, map[string]bool{id: true})
}
