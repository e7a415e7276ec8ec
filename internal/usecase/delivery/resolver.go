package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
)

// DefaultPromoEvery задаёт, после какой по счёту успешной доставки уходит промо.
const DefaultPromoEvery = 3

// Outcome: итог доставки.
type Outcome int

const (
	// OutcomeDelivered: серия отправлена.
	OutcomeDelivered Outcome = iota + 1
	// OutcomeAllSourcesFailed: ни один способ отправки не сработал.
	OutcomeAllSourcesFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeAllSourcesFailed:
		return "all_sources_failed"
	default:
		return "unknown"
	}
}

// Video описывает отправляемое видео: ссылку или локальный файл.
type Video struct {
	ChatID   int64
	URL      string
	FilePath string
	Caption  string
	BookID   string
	Prev     *domain.Chapter
	Next     *domain.Chapter
}

// Transport отправляет видео и служебные сообщения в чат.
// SendVideo возвращает ошибку, обёрнутую в domain.ErrWrongContent, если
// содержимое по ссылке не принято; такая ошибка не прерывает доставку.
type Transport interface {
	SendVideo(ctx context.Context, video Video) error
	SendPromo(ctx context.Context, chatID int64, text string) error
}

// Downloader скачивает видео во временный файл и возвращает путь к нему.
type Downloader interface {
	Download(ctx context.Context, url, name string) (string, error)
}

// Request: запрос на отправку серии.
type Request struct {
	ChatID  int64
	Catalog domain.Catalog
	Chapter domain.Chapter
	Quality int
	Prev    *domain.Chapter
	Next    *domain.Chapter
}

// Config задаёт параметры доставки.
type Config struct {
	PreferredCDN string
	PromoEvery   int64
	PromoText    string
}

// Resolver выбирает источник и способ отправки серии.
type Resolver struct {
	transport  Transport
	downloader Downloader
	counter    domain.DeliveryCounter
	business   domain.BusinessMetricRepo
	cfg        Config
	log        zerolog.Logger
}

// NewResolver создаёт резолвер доставки.
func NewResolver(transport Transport, downloader Downloader, counter domain.DeliveryCounter, business domain.BusinessMetricRepo, cfg Config, log zerolog.Logger) *Resolver {
	if cfg.PromoEvery <= 0 {
		cfg.PromoEvery = DefaultPromoEvery
	}
	if business == nil {
		business = domain.NopBusinessMetrics{}
	}
	return &Resolver{transport: transport, downloader: downloader, counter: counter, business: business, cfg: cfg, log: log}
}

type strategy struct {
	name string
	run  func(ctx context.Context) error
}

// Deliver пробует стратегии по порядку: прямые ссылки на каждый CDN с нужным
// качеством (предпочтительный первым), затем скачивание и загрузка файла.
// Ошибка транспорта, отличная от domain.ErrWrongContent, прерывает доставку.
func (r *Resolver) Deliver(ctx context.Context, req Request) (Outcome, error) {
	logger := r.log.With().Int64("chat", req.ChatID).Str("book", req.Catalog.BookID).Str("chapter", req.Chapter.ID).Int("quality", req.Quality).Logger()

	strategies := r.plan(req)
	if len(strategies) == 0 {
		logger.Warn().Msg("delivery: нет источников с нужным качеством")
		r.fail(ctx, req, "no_sources")
		return OutcomeAllSourcesFailed, nil
	}

	for _, st := range strategies {
		err := st.run(ctx)
		if err == nil {
			metrics.ObserveDelivery(st.name, "success")
			logger.Info().Str("strategy", st.name).Msg("delivery: серия отправлена")
			r.succeed(ctx, req, st.name, logger)
			return OutcomeDelivered, nil
		}
		if errors.Is(err, domain.ErrWrongContent) {
			metrics.ObserveDelivery(st.name, "wrong_content")
			logger.Warn().Err(err).Str("strategy", st.name).Msg("delivery: источник не принят, пробуем следующий")
			continue
		}
		metrics.ObserveDelivery(st.name, "error")
		logger.Error().Err(err).Str("strategy", st.name).Msg("delivery: отправка прервана")
		return 0, fmt.Errorf("доставка серии %s: %w", req.Chapter.ID, err)
	}

	r.fail(ctx, req, "exhausted")
	logger.Warn().Int("strategies", len(strategies)).Msg("delivery: все источники недоступны")
	return OutcomeAllSourcesFailed, nil
}

func (r *Resolver) plan(req Request) []strategy {
	caption := Caption(req.Catalog, req.Chapter, req.Quality)
	base := Video{ChatID: req.ChatID, Caption: caption, BookID: req.Catalog.BookID, Prev: req.Prev, Next: req.Next}

	var out []strategy
	var firstURL string
	for _, src := range req.Chapter.AttemptOrder(r.cfg.PreferredCDN) {
		variant, ok := src.FindQuality(req.Quality)
		if !ok {
			continue
		}
		if firstURL == "" {
			firstURL = variant.URL
		}
		video := base
		video.URL = variant.URL
		out = append(out, strategy{
			name: "direct",
			run: func(ctx context.Context) error {
				return r.transport.SendVideo(ctx, video)
			},
		})
	}
	if firstURL == "" || r.downloader == nil {
		return out
	}
	out = append(out, strategy{
		name: "upload",
		run: func(ctx context.Context) error {
			return r.upload(ctx, base, firstURL, req.Chapter.ID)
		},
	})
	return out
}

func (r *Resolver) upload(ctx context.Context, video Video, url, chapterID string) error {
	path, err := r.downloader.Download(ctx, url, chapterID)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				r.log.Error().Err(rmErr).Str("path", path).Msg("delivery: не удалось удалить временный файл")
			}
		}()
	}
	if err != nil {
		// Не скачали файл: грузить нечего, считаем источник непригодным.
		return fmt.Errorf("%w: скачивание: %w", domain.ErrWrongContent, err)
	}
	video.FilePath = path
	return r.transport.SendVideo(ctx, video)
}

func (r *Resolver) succeed(ctx context.Context, req Request, strategyName string, logger zerolog.Logger) {
	chatID := req.ChatID
	r.record(ctx, domain.BusinessMetric{
		Event:    domain.BusinessMetricEventChapterDelivered,
		ChatID:   &chatID,
		BookID:   req.Catalog.BookID,
		Metadata: map[string]any{"chapter_id": req.Chapter.ID, "quality": req.Quality, "strategy": strategyName},
	})

	count, err := r.counter.Increment(ctx, req.ChatID)
	if err != nil {
		logger.Error().Err(err).Msg("delivery: не удалось обновить счётчик доставок")
		return
	}
	if count%r.cfg.PromoEvery != 0 || r.cfg.PromoText == "" {
		return
	}
	if err := r.transport.SendPromo(ctx, req.ChatID, r.cfg.PromoText); err != nil {
		logger.Error().Err(err).Msg("delivery: не удалось отправить промо")
		return
	}
	metrics.IncPromoSent()
	r.record(ctx, domain.BusinessMetric{
		Event:    domain.BusinessMetricEventPromoSent,
		ChatID:   &chatID,
		BookID:   req.Catalog.BookID,
		Metadata: map[string]any{"deliveries": count},
	})
}

func (r *Resolver) fail(ctx context.Context, req Request, reason string) {
	chatID := req.ChatID
	metrics.ObserveDelivery("all", "failed")
	r.record(ctx, domain.BusinessMetric{
		Event:    domain.BusinessMetricEventDeliveryFailed,
		ChatID:   &chatID,
		BookID:   req.Catalog.BookID,
		Metadata: map[string]any{"chapter_id": req.Chapter.ID, "quality": req.Quality, "reason": reason},
	})
}

func (r *Resolver) record(ctx context.Context, metric domain.BusinessMetric) {
	metric.OccurredAt = time.Now().UTC()
	if err := r.business.RecordBusinessMetric(ctx, metric); err != nil {
		r.log.Error().Err(err).Str("event", metric.Event).Msg("delivery: не удалось сохранить бизнес-метрику")
	}
}
