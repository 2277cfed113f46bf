package cache

import (
	"io"
	"time"
)

// Backend stores byte payloads that expire.
type Backend interface {
	// Get returns the payload stored under key and the time it was stored.
	// Expired entries are reported as missing.
	Get(key string) (v []byte, storedTime time.Time, ok bool)

	// Store copies v into the cache. The entry expires at expire.
	Store(key string, v []byte, expire time.Time) error

	Len() int

	io.Closer
}
