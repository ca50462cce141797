package cache

import (
	"bytes"

	cache_structs "httpProxy/internal/cache/structs"
)

const SlotCount = 10

// Store is a fixed array of slots with age-based eviction. It does no locking
// of its own; every call must run under the matching Coordinator permission.
type Store struct {
	slots [SlotCount]cache_structs.Entry
}

func NewStore() *Store {
	return &Store{}
}

// Lookup ages every occupied slot by one and resets the matching slot to zero.
// If several slots hold the key, the highest index wins.
func (s *Store) Lookup(key []byte) ([]byte, bool) {
	var found *cache_structs.Entry

	for i := range s.slots {
		slot := &s.slots[i]
		if !slot.Occupied {
			continue
		}
		if bytes.Equal(slot.Key, key) {
			slot.Age.Store(0)
			found = slot
		} else {
			slot.Age.Add(1)
		}
	}

	if found == nil {
		return nil, false
	}
	return bytes.Clone(found.Value), true
}

// Insert stores key/value in the first free slot, or evicts the oldest one.
// It returns the slot index used and whether an occupied slot was evicted.
func (s *Store) Insert(key, value []byte) (int, bool) {
	idx := s.victim()
	evicted := s.slots[idx].Occupied

	slot := &s.slots[idx]
	slot.Occupied = true
	slot.Age.Store(0)
	slot.Key = bytes.Clone(key)
	slot.Value = bytes.Clone(value)
	return idx, evicted
}

// victim picks the first unoccupied slot, else the slot with the strictly
// greatest age (lowest index on ties).
func (s *Store) victim() int {
	for i := range s.slots {
		if !s.slots[i].Occupied {
			return i
		}
	}

	oldest := 0
	for i := 1; i < len(s.slots); i++ {
		if s.slots[oldest].Age.Load() < s.slots[i].Age.Load() {
			oldest = i
		}
	}
	return oldest
}

func (s *Store) Len() int {
	n := 0
	for i := range s.slots {
		if s.slots[i].Occupied {
			n++
		}
	}
	return n
}

// Size is the total number of value bytes held.
func (s *Store) Size() int {
	n := 0
	for i := range s.slots {
		if s.slots[i].Occupied {
			n += len(s.slots[i].Value)
		}
	}
	return n
}

func (s *Store) Snapshot() []cache_structs.SlotInfo {
	infos := make([]cache_structs.SlotInfo, 0, len(s.slots))
	for i := range s.slots {
		slot := &s.slots[i]
		info := cache_structs.SlotInfo{Index: i, Occupied: slot.Occupied}
		if slot.Occupied {
			info.Age = slot.Age.Load()
			info.Key = string(slot.Key)
			info.Size = len(slot.Value)
		}
		infos = append(infos, info)
	}
	return infos
}

func (s *Store) Reset() {
	for i := range s.slots {
		slot := &s.slots[i]
		slot.Occupied = false
		slot.Age.Store(0)
		slot.Key = nil
		slot.Value = nil
	}
}
