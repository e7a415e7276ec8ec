package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"dramabox-bot/internal/domain"
)

// MemoryCatalogStore хранит каталоги в памяти процесса с ограничением размера и TTL.
// После перезапуска кэш пуст, и пользователю нужно прислать ссылку заново.
type MemoryCatalogStore struct {
	lru *expirable.LRU[string, domain.Catalog]
}

var _ domain.CatalogStore = (*MemoryCatalogStore)(nil)

// NewMemoryCatalogStore создаёт кэш каталогов. size <= 0 означает 512 записей,
// ttl <= 0: без истечения по времени.
func NewMemoryCatalogStore(size int, ttl time.Duration) *MemoryCatalogStore {
	if size <= 0 {
		size = 512
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryCatalogStore{lru: expirable.NewLRU[string, domain.Catalog](size, nil, ttl)}
}

// Get возвращает каталог по идентификатору.
func (s *MemoryCatalogStore) Get(_ context.Context, bookID string) (domain.Catalog, bool, error) {
	catalog, ok := s.lru.Get(bookID)
	return catalog, ok, nil
}

// Put целиком заменяет запись каталога.
func (s *MemoryCatalogStore) Put(_ context.Context, catalog domain.Catalog) error {
	s.lru.Add(catalog.BookID, catalog)
	return nil
}

// Remove удаляет каталог.
func (s *MemoryCatalogStore) Remove(_ context.Context, bookID string) error {
	s.lru.Remove(bookID)
	return nil
}

// Len возвращает число записей.
func (s *MemoryCatalogStore) Len() int {
	return s.lru.Len()
}

// MemoryTokenStore хранит токен API в памяти.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

var _ domain.TokenStore = (*MemoryTokenStore)(nil)

// Load возвращает токен, если он есть.
func (s *MemoryTokenStore) Load(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != "", nil
}

// Save сохраняет токен.
func (s *MemoryTokenStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// CompareAndClear удаляет токен, если он равен expected.
func (s *MemoryTokenStore) CompareAndClear(_ context.Context, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.token != expected {
		return false, nil
	}
	s.token = ""
	return true, nil
}

// MemoryDeliveryCounter считает доставки по чатам в памяти.
type MemoryDeliveryCounter struct {
	mu     sync.Mutex
	counts map[int64]int64
}

var _ domain.DeliveryCounter = (*MemoryDeliveryCounter)(nil)

// NewMemoryDeliveryCounter создаёт счётчик.
func NewMemoryDeliveryCounter() *MemoryDeliveryCounter {
	return &MemoryDeliveryCounter{counts: make(map[int64]int64)}
}

// Increment увеличивает счётчик чата и возвращает новое значение.
func (c *MemoryDeliveryCounter) Increment(_ context.Context, chatID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[chatID]++
	return c.counts[chatID], nil
}
