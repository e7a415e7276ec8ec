package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token       string `envconfig:"TG_BOT_TOKEN" required:"true"`
		WebhookURL  string `envconfig:"TG_WEBHOOK_URL"`
		WebhookPath string `envconfig:"TG_WEBHOOK_PATH" default:"/bot/webhook"`
	} `envconfig:""`

	DramaBox struct {
		BaseURL      string        `envconfig:"DRAMABOX_BASE_URL" default:"https://sapi.dramaboxdb.com"`
		DeviceID     string        `envconfig:"DRAMABOX_DEVICE_ID"`
		AndroidID    string        `envconfig:"DRAMABOX_ANDROID_ID" default:"ffffffff8315e7318315e73100000000"`
		Language     string        `envconfig:"DRAMABOX_LANGUAGE" default:"in"`
		Country      string        `envconfig:"DRAMABOX_COUNTRY" default:"ID"`
		Timeout      time.Duration `envconfig:"DRAMABOX_TIMEOUT" default:"20s"`
		RPS          float64       `envconfig:"DRAMABOX_RPS" default:"5"`
		PreferredCDN string        `envconfig:"DRAMABOX_PREFERRED_CDN" default:"nakavideo.dramaboxdb.com"`
	} `envconfig:""`

	Cache struct {
		Size int           `envconfig:"CATALOG_CACHE_SIZE" default:"512"`
		TTL  time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"24h"`
	} `envconfig:""`

	Delivery struct {
		ScratchDir      string        `envconfig:"DELIVERY_SCRATCH_DIR" default:"downloads"`
		PromoEvery      int64         `envconfig:"DELIVERY_PROMO_EVERY" default:"3"`
		PromoText       string        `envconfig:"DELIVERY_PROMO_TEXT" default:"🍿 Нравится бот? Поделитесь им с друзьями!"`
		DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"5m"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	PGDSN     string `envconfig:"PG_DSN"`
}

// Load загружает конфиг из окружения, предварительно подхватывая .env.
func Load() AppConfig {
	_ = godotenv.Load()
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
