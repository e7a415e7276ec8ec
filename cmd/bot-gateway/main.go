package main

import (
	"context"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dramabox-bot/internal/adapters/bot"
	"dramabox-bot/internal/adapters/download"
	"dramabox-bot/internal/adapters/dramabox"
	"dramabox-bot/internal/adapters/repo"
	"dramabox-bot/internal/adapters/telegram"
	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/cache"
	"dramabox-bot/internal/infra/config"
	"dramabox-bot/internal/infra/db"
	httpinfra "dramabox-bot/internal/infra/http"
	"dramabox-bot/internal/infra/log"
	"dramabox-bot/internal/infra/metrics"
	"dramabox-bot/internal/usecase/catalog"
	"dramabox-bot/internal/usecase/delivery"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		tokens  domain.TokenStore      = &cache.MemoryTokenStore{}
		counter domain.DeliveryCounter = cache.NewMemoryDeliveryCounter()
	)
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		defer client.Close()
		tokens = cache.NewRedisTokenStore(client)
		counter = cache.NewRedisDeliveryCounter(client)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("токен и счётчики доставок хранятся в Redis")
	}

	var business domain.BusinessMetricRepo = domain.NopBusinessMetrics{}
	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("не удалось подготовить схему БД")
		}
		business = pg
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	logger.Info().Str("username", botAPI.Self.UserName).Msg("бот авторизован")

	client := dramabox.NewClient(
		cfg.DramaBox.BaseURL,
		cfg.DramaBox.Timeout,
		dramabox.Identity{
			DeviceID:  cfg.DramaBox.DeviceID,
			AndroidID: cfg.DramaBox.AndroidID,
			Language:  cfg.DramaBox.Language,
			Country:   cfg.DramaBox.Country,
		},
		tokens,
		logger.With().Str("component", "dramabox").Logger(),
		dramabox.WithRateLimit(cfg.DramaBox.RPS),
	)
	catalogService := catalog.NewService(client, cache.NewMemoryCatalogStore(cfg.Cache.Size, cfg.Cache.TTL), business, logger.With().Str("component", "catalog").Logger())
	deliveryResolver := delivery.NewResolver(
		telegram.NewSender(botAPI, logger),
		download.NewHTTPDownloader(cfg.Delivery.ScratchDir, cfg.Delivery.DownloadTimeout, logger),
		counter,
		business,
		delivery.Config{
			PreferredCDN: cfg.DramaBox.PreferredCDN,
			PromoEvery:   cfg.Delivery.PromoEvery,
			PromoText:    cfg.Delivery.PromoText,
		},
		logger.With().Str("component", "delivery").Logger(),
	)
	h := bot.NewHandler(botAPI, logger.With().Str("component", "bot").Logger(), catalogService, deliveryResolver, cfg.DramaBox.PreferredCDN)

	server := httpinfra.NewServer(logger, ":"+strconv.Itoa(cfg.Port),
		httpinfra.WithHealthCheck("dramabox_token", func(ctx context.Context) string {
			return client.Tokens().State(ctx).String()
		}),
	)
	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Telegram.WebhookURL != "" {
		if err := setWebhook(botAPI, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookPath); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
		server.MountWebhook(groupCtx, cfg.Telegram.WebhookPath, h.HandleUpdate)
		logger.Info().Str("path", cfg.Telegram.WebhookPath).Msg("бот работает через вебхук")
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		group.Go(func() error {
			poll(groupCtx, botAPI, h, logger)
			return nil
		})
	}

	group.Go(func() error {
		return server.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("остановка бота")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("бот остановлен с ошибкой")
	}
}

func setWebhook(botAPI *tgbotapi.BotAPI, baseURL, path string) error {
	link := strings.TrimRight(baseURL, "/") + path
	wh, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return err
	}
	_, err = botAPI.Request(wh)
	return err
}

// poll получает апдейты long polling'ом и обрабатывает каждый в своей горутине.
func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, h *bot.Handler, logger zerolog.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := botAPI.GetUpdatesChan(u)
	logger.Info().Msg("бот работает через long polling")
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			go h.HandleUpdate(ctx, upd)
		}
	}
}
