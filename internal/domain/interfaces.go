package domain

import "context"

// PageFetcher загружает одну страницу каталога.
type PageFetcher interface {
	FetchPage(ctx context.Context, bookID string, index int) (CatalogPage, error)
}

// CatalogStore хранит собранные каталоги по идентификатору.
type CatalogStore interface {
	Get(ctx context.Context, bookID string) (Catalog, bool, error)
	Put(ctx context.Context, catalog Catalog) error
	Remove(ctx context.Context, bookID string) error
}

// TokenStore хранит общий токен API.
type TokenStore interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, token string) error
	// CompareAndClear удаляет токен, только если он совпадает с expected.
	CompareAndClear(ctx context.Context, expected string) (bool, error)
}

// DeliveryCounter считает успешные доставки по чатам.
type DeliveryCounter interface {
	Increment(ctx context.Context, chatID int64) (int64, error)
}
