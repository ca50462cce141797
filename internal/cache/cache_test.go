package cache

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheDefaults(t *testing.T) {
	c := NewCache(0, nil)
	assert.Equal(t, MaxObjectSize, c.MaxObjectSize())
	assert.Equal(t, 0, c.Len())
}

func TestCachePutGet(t *testing.T) {
	c := NewCache(1024, nil)
	require.NoError(t, c.Put("GET /a HTTP/1.0\r\n", []byte("response")))

	value, ok := c.Get("GET /a HTTP/1.0\r\n")
	require.True(t, ok)
	assert.Equal(t, "response", string(value))
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get("GET /b HTTP/1.0\r\n")
	assert.False(t, ok)
}

func TestCacheRejectsOversizedValue(t *testing.T) {
	c := NewCache(8, nil)

	err := c.Put("GET / HTTP/1.0\r\n", bytes.Repeat([]byte("x"), 9))
	assert.True(t, errors.Is(err, ErrObjectTooLarge))
	assert.Equal(t, 0, c.Len())

	assert.NoError(t, c.Put("GET / HTTP/1.0\r\n", bytes.Repeat([]byte("x"), 8)))
	assert.Equal(t, 1, c.Len())
}

func TestCachePurge(t *testing.T) {
	c := NewCache(1024, nil)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Put(fmt.Sprintf("GET /%d HTTP/1.0\r\n", i), []byte("v")))
	}
	c.Purge()
	assert.Equal(t, 0, c.Len())
	for _, info := range c.Snapshot() {
		assert.False(t, info.Occupied)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(1024, nil)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				k := fmt.Sprintf("GET /%d/%d HTTP/1.0\r\n", w, i%15)
				if _, ok := c.Get(k); !ok {
					assert.NoError(t, c.Put(k, []byte(k)))
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, SlotCount, c.Len())
	for _, info := range c.Snapshot() {
		require.True(t, info.Occupied)
		value, ok := c.Get(info.Key)
		if ok {
			assert.Equal(t, info.Key, string(value))
		}
	}
}

func TestLookupAfterInsertObservesValue(t *testing.T) {
	c := NewCache(1024, nil)
	inserted := make(chan struct{})

	go func() {
		assert.NoError(t, c.Put("GET /x HTTP/1.0\r\n", []byte("x")))
		close(inserted)
	}()

	<-inserted
	value, ok := c.Get("GET /x HTTP/1.0\r\n")
	require.True(t, ok)
	assert.Equal(t, "x", string(value))
}
