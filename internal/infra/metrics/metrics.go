package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120, 180, 300},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	CatalogFetchPages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_fetch_pages",
		Help:    "Количество страниц API, запрошенных при сборке каталога",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
	})

	CatalogChapters = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_chapters",
		Help:    "Количество серий в собранном каталоге",
		Buckets: []float64{1, 10, 25, 50, 75, 100, 150, 200, 300},
	}, []string{"complete"})

	CatalogCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Обращения к кэшу каталогов",
	}, []string{"result"})

	TokenRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refresh_total",
		Help: "Получения токена API",
	}, []string{"status"})

	DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_total",
		Help: "Попытки доставки серий по стратегиям",
	}, []string{"strategy", "outcome"})

	PromoSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promo_sent_total",
		Help: "Отправленные промо-сообщения",
	})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		CatalogFetchPages,
		CatalogChapters,
		CatalogCacheLookups,
		TokenRefreshTotal,
		DeliveriesTotal,
		PromoSentTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveCatalog записывает итог сборки каталога.
func ObserveCatalog(pages, chapters, declared int) {
	CatalogFetchPages.Observe(float64(pages))
	complete := "false"
	if chapters >= declared {
		complete = "true"
	}
	CatalogChapters.WithLabelValues(complete).Observe(float64(chapters))
}

// ObserveCacheLookup учитывает попадание или промах кэша каталогов.
func ObserveCacheLookup(hit bool) {
	if hit {
		CatalogCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CatalogCacheLookups.WithLabelValues("miss").Inc()
}

// ObserveTokenRefresh учитывает попытку получения токена.
func ObserveTokenRefresh(err error) {
	if err != nil {
		TokenRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	TokenRefreshTotal.WithLabelValues("success").Inc()
}

// ObserveDelivery учитывает результат одной стратегии доставки.
func ObserveDelivery(strategy, outcome string) {
	DeliveriesTotal.WithLabelValues(strategy, outcome).Inc()
}

// IncPromoSent увеличивает счётчик промо-сообщений.
func IncPromoSent() {
	PromoSentTotal.Inc()
}
