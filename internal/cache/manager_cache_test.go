package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"nf-tickets-sol/internal/types"
)

func key(i int) types.Pubkey {
	var pk types.Pubkey
	pk[0] = byte(i)
	pk[1] = byte(i >> 8)
	return pk
}

func TestManagerCache_PositiveOnly(t *testing.T) {
	c := NewManagerCache(10)
	assert.False(t, c.Exists(key(1)))

	c.MarkExists(key(1))
	assert.True(t, c.Exists(key(1)))
	assert.False(t, c.Exists(key(2)))

	c.MarkExists(key(1))
	assert.Equal(t, 1, c.Len())
}

func TestManagerCache_Eviction(t *testing.T) {
	c := NewManagerCache(8)
	for i := 0; i < 8; i++ {
		c.MarkExists(key(i))
	}
	assert.Equal(t, 8, c.Len())

	c.MarkExists(key(100))
	assert.True(t, c.Exists(key(100)))
	assert.LessOrEqual(t, c.Len(), 7)
}

func TestManagerCache_Concurrent(t *testing.T) {
	c := NewManagerCache(1000)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.MarkExists(key(g*100 + i))
				c.Exists(key(i))
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 800, c.Len())
}
