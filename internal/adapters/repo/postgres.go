package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
)

// Postgres хранит журнал бизнес-метрик в Postgres.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.BusinessMetricRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const schema = `
CREATE TABLE IF NOT EXISTS business_metrics (
	id          BIGSERIAL PRIMARY KEY,
	event       TEXT        NOT NULL,
	chat_id     BIGINT,
	book_id     TEXT,
	metadata    JSONB,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS business_metrics_event_idx ON business_metrics (event, occurred_at);
`

// EnsureSchema создаёт таблицу журнала, если её нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, schema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "business_metrics", start, err)
	if err != nil {
		return fmt.Errorf("создание схемы: %w", err)
	}
	return nil
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}

	// Запись журнала не должна отменяться вместе с апдейтом.
	ctx, cancel := p.connCtx(context.WithoutCancel(ctx))
	defer cancel()

	var chatID sql.NullInt64
	if metric.ChatID != nil {
		chatID = sql.NullInt64{Int64: *metric.ChatID, Valid: true}
	}
	var bookID sql.NullString
	if metric.BookID != "" {
		bookID = sql.NullString{String: metric.BookID, Valid: true}
	}
	var payload []byte
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_metrics (event, chat_id, book_id, metadata, occurred_at)
VALUES ($1, $2, $3, $4, $5)
`, metric.Event, chatID, bookID, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", "business_metrics", start, err)
	return err
}
