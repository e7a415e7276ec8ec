package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"dramabox-bot/internal/domain"
)

func TestMemoryCatalogStoreOverwritesAndEvicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore(2, time.Hour)

	_ = store.Put(ctx, domain.Catalog{BookID: "1", Title: "первый"})
	_ = store.Put(ctx, domain.Catalog{BookID: "1", Title: "обновлённый"})
	got, ok, err := store.Get(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("ожидали запись, ok=%v err=%v", ok, err)
	}
	if got.Title != "обновлённый" {
		t.Fatalf("ожидали перезапись, получили %q", got.Title)
	}

	_ = store.Put(ctx, domain.Catalog{BookID: "2"})
	_ = store.Put(ctx, domain.Catalog{BookID: "3"})
	if _, ok, _ := store.Get(ctx, "1"); ok {
		t.Fatal("ожидали вытеснение самой старой записи")
	}
	if store.Len() != 2 {
		t.Fatalf("ожидали 2 записи, получили %d", store.Len())
	}

	_ = store.Remove(ctx, "2")
	if _, ok, _ := store.Get(ctx, "2"); ok {
		t.Fatal("ожидали удаление записи")
	}
}

func TestMemoryTokenStoreCompareAndClear(t *testing.T) {
	ctx := context.Background()
	store := &MemoryTokenStore{}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatal("ожидали пустое хранилище")
	}
	_ = store.Save(ctx, "fresh")
	if cleared, _ := store.CompareAndClear(ctx, "stale"); cleared {
		t.Fatal("чужой токен не должен сбрасывать текущий")
	}
	if cleared, _ := store.CompareAndClear(ctx, "fresh"); !cleared {
		t.Fatal("ожидали сброс текущего токена")
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatal("ожидали отсутствие токена после сброса")
	}
}

func TestMemoryDeliveryCounterConcurrent(t *testing.T) {
	ctx := context.Background()
	counter := NewMemoryDeliveryCounter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = counter.Increment(ctx, 7)
		}()
	}
	wg.Wait()
	n, _ := counter.Increment(ctx, 7)
	if n != 51 {
		t.Fatalf("ожидали 51, получили %d", n)
	}
	if n, _ := counter.Increment(ctx, 8); n != 1 {
		t.Fatalf("счётчики чатов должны быть независимы, получили %d", n)
	}
}
