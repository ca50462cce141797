package cache

import "sync"

// Coordinator is a readers/writer lock in the classic "first reader locks out
// writers, last reader lets them back in" form. A steady stream of readers can
// starve a writer.
type Coordinator struct {
	mutex   sync.Mutex // guards readers
	readers int
	// token is held by a writer, or by the reader group as a whole. It may be
	// released by a different goroutine than the one that acquired it.
	token sync.Mutex
}

func (c *Coordinator) AcquireRead() {
	c.mutex.Lock()
	c.readers++
	if c.readers == 1 {
		c.token.Lock()
	}
	c.mutex.Unlock()
}

func (c *Coordinator) ReleaseRead() {
	c.mutex.Lock()
	c.readers--
	if c.readers == 0 {
		c.token.Unlock()
	}
	c.mutex.Unlock()
}

func (c *Coordinator) AcquireWrite() {
	c.token.Lock()
}

func (c *Coordinator) ReleaseWrite() {
	c.token.Unlock()
}

// Readers returns the number of readers currently inside the read section.
func (c *Coordinator) Readers() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.readers
}
