package httpResponse

// BoundedBuffer accumulates bytes up to a fixed capacity. Once a write would
// take the total past the capacity the buffer drops what it holds and stops
// retaining; Total keeps counting so the caller knows how much was seen.
type BoundedBuffer struct {
	data       []byte
	capacity   int
	total      int
	overflowed bool
}

func NewBoundedBuffer(capacity int) *BoundedBuffer {
	return &BoundedBuffer{capacity: capacity}
}

// Write never fails; it exists so the buffer can sit behind an io.MultiWriter.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	b.total += len(p)
	if b.overflowed {
		return len(p), nil
	}
	if b.total > b.capacity {
		b.overflowed = true
		b.data = nil
		return len(p), nil
	}

	b.data = append(b.data, p...)
	return len(p), nil
}

// Bytes returns the retained bytes, or nil once the capacity was exceeded.
func (b *BoundedBuffer) Bytes() []byte {
	if b.overflowed {
		return nil
	}
	return b.data
}

func (b *BoundedBuffer) Total() int {
	return b.total
}

func (b *BoundedBuffer) Overflowed() bool {
	return b.overflowed
}

func (b *BoundedBuffer) Capacity() int {
	return b.capacity
}
