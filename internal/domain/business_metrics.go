package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	Event      string
	ChatID     *int64
	BookID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventCatalogResolved фиксирует успешную сборку каталога по ссылке.
	BusinessMetricEventCatalogResolved = "catalog_resolved"
	// BusinessMetricEventChapterDelivered фиксирует успешную отправку серии.
	BusinessMetricEventChapterDelivered = "chapter_delivered"
	// BusinessMetricEventDeliveryFailed фиксирует, что все источники оказались недоступны.
	BusinessMetricEventDeliveryFailed = "delivery_failed"
	// BusinessMetricEventPromoSent фиксирует отправку промо-сообщения.
	BusinessMetricEventPromoSent = "promo_sent"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}

// NopBusinessMetrics игнорирует события, когда БД не настроена.
type NopBusinessMetrics struct{}

// RecordBusinessMetric ничего не делает.
func (NopBusinessMetrics) RecordBusinessMetric(context.Context, BusinessMetric) error { return nil }
