package cache_structs

import "sync/atomic"

// Entry is one cache slot. Age is atomic because lookups age slots while
// holding only shared read permission.
type Entry struct {
	Occupied bool
	Age      atomic.Int64
	Key      []byte
	Value    []byte
}

// SlotInfo is a read-only view of a slot, safe to hand outside the cache.
type SlotInfo struct {
	Index    int    `json:"index"`
	Occupied bool   `json:"occupied"`
	Age      int64  `json:"age"`
	Key      string `json:"key,omitempty"`
	Size     int    `json:"size"`
}
