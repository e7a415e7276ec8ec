package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
)

// Service собирает каталоги и хранит их в кэше для последующих нажатий кнопок.
type Service struct {
	fetcher  domain.PageFetcher
	store    domain.CatalogStore
	business domain.BusinessMetricRepo
	log      zerolog.Logger
}

// NewService создаёт сервис каталогов.
func NewService(fetcher domain.PageFetcher, store domain.CatalogStore, business domain.BusinessMetricRepo, log zerolog.Logger) *Service {
	if business == nil {
		business = domain.NopBusinessMetrics{}
	}
	return &Service{fetcher: fetcher, store: store, business: business, log: log}
}

// Load собирает каталог заново и перезаписывает запись в кэше.
func (s *Service) Load(ctx context.Context, chatID int64, bookID string) (domain.Catalog, error) {
	start := time.Now()
	res, err := Aggregate(ctx, s.fetcher, bookID)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("сборка каталога %s: %w", bookID, err)
	}
	catalog := res.Catalog
	metrics.ObserveCatalog(res.Pages, len(catalog.Chapters), catalog.ChapterCount)

	if err := s.store.Put(ctx, catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("сохранение каталога %s: %w", bookID, err)
	}

	logEvent := s.log.Info()
	if len(catalog.Chapters) < catalog.ChapterCount {
		logEvent = s.log.Warn()
	}
	logEvent.
		Str("book", bookID).
		Int("pages", res.Pages).
		Int("chapters", len(catalog.Chapters)).
		Int("declared", catalog.ChapterCount).
		Dur("took", time.Since(start)).
		Msg("catalog: каталог собран")

	s.record(ctx, domain.BusinessMetric{
		Event:  domain.BusinessMetricEventCatalogResolved,
		ChatID: &chatID,
		BookID: bookID,
		Metadata: map[string]any{
			"pages":    res.Pages,
			"chapters": len(catalog.Chapters),
			"declared": catalog.ChapterCount,
		},
	})
	return catalog, nil
}

// Lookup возвращает каталог из кэша. Отсутствие записи означает истёкшую сессию.
func (s *Service) Lookup(ctx context.Context, bookID string) (domain.Catalog, error) {
	catalog, ok, err := s.store.Get(ctx, bookID)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("чтение кэша каталогов: %w", err)
	}
	metrics.ObserveCacheLookup(ok)
	if !ok {
		return domain.Catalog{}, fmt.Errorf("%w: книга %s", domain.ErrSessionExpired, bookID)
	}
	return catalog, nil
}

func (s *Service) record(ctx context.Context, metric domain.BusinessMetric) {
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}
	if err := s.business.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Error().Err(err).Str("event", metric.Event).Msg("catalog: не удалось сохранить бизнес-метрику")
	}
}
