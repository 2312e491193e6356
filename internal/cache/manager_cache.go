package cache

import (
	"sync"

	"nf-tickets-sol/internal/types"
)

// ManagerCache 只记录"已确认存在"的 manager 地址。
// manager 账户创建后不会被关闭，所以正向结果可以一直复用；不存在的结果从不缓存。
type ManagerCache struct {
	mu          sync.RWMutex
	known       map[types.Pubkey]struct{}
	maxCapacity int
	retainCount int
}

func NewManagerCache(capacity int) *ManagerCache {
	if capacity <= 0 {
		capacity = 100_000
	}
	return &ManagerCache{
		known:       make(map[types.Pubkey]struct{}, 1024),
		maxCapacity: capacity,
		retainCount: capacity * 3 / 4,
	}
}

func (c *ManagerCache) Exists(manager types.Pubkey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.known[manager]
	return ok
}

func (c *ManagerCache) MarkExists(manager types.Pubkey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.known[manager]; ok {
		return
	}
	if len(c.known) >= c.maxCapacity {
		// 超出容量时随机淘汰到 retainCount，被淘汰的地址下次会重新查询链上
		for k := range c.known {
			if len(c.known) <= c.retainCount {
				break
			}
			delete(c.known, k)
		}
	}
	c.known[manager] = struct{}{}
}

func (c *ManagerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.known)
}
