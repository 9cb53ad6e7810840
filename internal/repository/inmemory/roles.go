package inmemory

import (
	"sync"
	"time"

	"babytrack-go/internal/domain/access"
)

type RoleCache struct {
	mu    sync.RWMutex
	items map[string]map[string]roleItem
	now   func() time.Time
}

type roleItem struct {
	value     access.Role
	expiresAt time.Time
}

func NewRoleCache() *RoleCache {
	return &RoleCache{
		items: make(map[string]map[string]roleItem),
		now:   time.Now,
	}
}

func (c *RoleCache) Get(babyID, userID string) (access.Role, bool) {
	now := c.now()

	c.mu.RLock()
	item, ok := c.items[babyID][userID]
	c.mu.RUnlock()
	if !ok {
		return access.RoleNone, false
	}

	if !item.expiresAt.After(now) {
		c.mu.Lock()
		item, ok = c.items[babyID][userID]
		if ok && !item.expiresAt.After(now) {
			c.deleteLocked(babyID, userID)
		}
		c.mu.Unlock()
		return access.RoleNone, false
	}

	return item.value, true
}

func (c *RoleCache) Set(babyID, userID string, role access.Role, ttl time.Duration) {
	if role == access.RoleNone || ttl <= 0 {
		c.Delete(babyID, userID)
		return
	}

	c.mu.Lock()
	users, ok := c.items[babyID]
	if !ok {
		users = make(map[string]roleItem)
		c.items[babyID] = users
	}
	users[userID] = roleItem{
		value:     role,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *RoleCache) Delete(babyID, userID string) {
	c.mu.Lock()
	c.deleteLocked(babyID, userID)
	c.mu.Unlock()
}

func (c *RoleCache) DeleteBaby(babyID string) {
	c.mu.Lock()
	delete(c.items, babyID)
	c.mu.Unlock()
}

func (c *RoleCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]map[string]roleItem)
	c.mu.Unlock()
}

func (c *RoleCache) deleteLocked(babyID, userID string) {
	users, ok := c.items[babyID]
	if !ok {
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(c.items, babyID)
	}
}
