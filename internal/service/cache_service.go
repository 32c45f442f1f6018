package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

// CacheService in-memory кэш с TTL. Просроченные записи удаляются при чтении
// и при вызове Sweep.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   Clock
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService создаёт пустой кэш.
func NewCacheService() *CacheService {
	return &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
	}
}

// Get возвращает значение, если оно ещё не просрочено.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	entry, exists := cs.cache[key]
	cs.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if cs.now().After(entry.expiresAt) {
		cs.Delete(key)
		return nil, false
	}

	return entry.data, true
}

// Set кладёт значение с TTL.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: cs.now().Add(ttl),
	}
}

// Delete удаляет ключ.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// InvalidateByPrefix удаляет все ключи с префиксом.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// InvalidateCatalog сбрасывает всё, что закэшировано по каталогу услуг.
func (cs *CacheService) InvalidateCatalog() {
	cs.InvalidateByPrefix("catalog:")
}

// Sweep удаляет просроченные записи и возвращает их количество.
func (cs *CacheService) Sweep() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	removed := 0
	for key, entry := range cs.cache {
		if now.After(entry.expiresAt) {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// Ключи кэша каталога.
func CatalogListCacheKey(activeOnly bool) string {
	if activeOnly {
		return "catalog:list:active"
	}
	return "catalog:list:all"
}

func CatalogSlugCacheKey(slug string) string {
	return "catalog:slug:" + slug
}

// GetOrSet возвращает значение из кэша или вычисляет и сохраняет его.
func (cs *CacheService) GetOrSet(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func() (interface{}, error),
) (interface{}, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	cs.Set(key, value, ttl)

	return value, nil
}
