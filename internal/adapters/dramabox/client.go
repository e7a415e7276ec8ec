package dramabox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
)

const (
	defaultBaseURL = "https://sapi.dramaboxdb.com"

	bootstrapPath    = "/drama-box/ap001/bootstrap"
	chapterBatchPath = "/drama-box/chapterv2/batch/load"

	// DefaultAuthAttempts: бюджет повторов после отказа авторизации.
	DefaultAuthAttempts = 15

	authRejectedStatus  = 12
	authRejectedMessage = "user not login"

	maxErrorBody = 1024
)

var errAuthRejected = errors.New("dramabox: токен отклонён")

// Identity: постоянные поля клиента, которыми бот представляется API.
type Identity struct {
	DeviceID  string
	AndroidID string
	Language  string
	Country   string
}

// Client выполняет запросы к API DramaBox.
type Client struct {
	http         *http.Client
	baseURL      string
	identity     Identity
	startUpKey   string
	tokens       *TokenManager
	limiter      *rate.Limiter
	authAttempts int
	log          zerolog.Logger
}

var _ domain.PageFetcher = (*Client)(nil)

// Option настраивает клиента.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиента.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRateLimit ограничивает частоту запросов к API.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAuthAttempts меняет бюджет повторов после отказа авторизации.
func WithAuthAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.authAttempts = n
		}
	}
}

// NewClient создаёт клиента DramaBox.
func NewClient(baseURL string, timeout time.Duration, identity Identity, store domain.TokenStore, log zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if identity.DeviceID == "" {
		identity.DeviceID = uuid.NewString()
	}
	c := &Client{
		http:         &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		identity:     identity,
		startUpKey:   uuid.NewString(),
		limiter:      rate.NewLimiter(rate.Inf, 0),
		authAttempts: DefaultAuthAttempts,
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = NewTokenManager(store, c.bootstrap, log)
	return c
}

// Tokens возвращает менеджер токена клиента.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// FetchPage загружает страницу серий. Отказ авторизации сбрасывает токен и
// повторяет запрос, пока не исчерпан бюджет; остальные ошибки возвращаются сразу.
func (c *Client) FetchPage(ctx context.Context, bookID string, index int) (domain.CatalogPage, error) {
	for attempt := 1; attempt <= c.authAttempts; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return domain.CatalogPage{}, err
		}
		page, err := c.loadChapters(ctx, token, bookID, index)
		if errors.Is(err, errAuthRejected) {
			c.log.Warn().Str("book", bookID).Int("index", index).Int("attempt", attempt).Msg("dramabox: токен отклонён, обновляем")
			c.tokens.Invalidate(ctx, token)
			continue
		}
		if err != nil {
			return domain.CatalogPage{}, err
		}
		return page, nil
	}
	return domain.CatalogPage{}, fmt.Errorf("%w: книга %s, индекс %d, попыток %d", domain.ErrAuthExhausted, bookID, index, c.authAttempts)
}

func (c *Client) loadChapters(ctx context.Context, token, bookID string, index int) (domain.CatalogPage, error) {
	payload := map[string]any{
		"boundaryIndex":          0,
		"comingPlaySectionId":    -1,
		"index":                  index,
		"currencyPlaySource":     "ssym_lxjg",
		"needEndRecommend":       0,
		"currencyPlaySourceName": "",
		"preLoad":                false,
		"rid":                    "",
		"pullCid":                "",
		"loadDirection":          0,
		"startUpKey":             c.startUpKey,
		"bookId":                 bookID,
	}
	endpoint := chapterBatchPath + "?timestamp=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	env, err := c.post(ctx, "chapter_batch", endpoint, token, payload)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	if isAuthRejected(env) {
		return domain.CatalogPage{}, errAuthRejected
	}
	var batch chapterBatch
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		// Пустой data: непригодная страница, решение принимает агрегатор.
		return domain.CatalogPage{Catalog: domain.Catalog{BookID: bookID}}, nil
	}
	if err := json.Unmarshal(env.Data, &batch); err != nil {
		return domain.CatalogPage{}, fmt.Errorf("%w: decode chapter batch: %w", domain.ErrFetch, err)
	}
	return batch.toPage(bookID), nil
}

func (c *Client) bootstrap(ctx context.Context) (string, error) {
	payload := map[string]any{"distinctId": c.identity.DeviceID}
	env, err := c.post(ctx, "bootstrap", bootstrapPath, "", payload)
	if err != nil {
		return "", err
	}
	if !env.Success && env.Status != 0 {
		return "", fmt.Errorf("bootstrap: status %d: %s", env.Status, env.Message)
	}
	var data bootstrapData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("bootstrap: decode: %w", err)
	}
	if data.User.Token == "" {
		return "", errors.New("bootstrap: в ответе нет токена")
	}
	return data.User.Token, nil
}

func (c *Client) post(ctx context.Context, operation, endpoint, token string, payload any) (envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return envelope{}, fmt.Errorf("%w: %s: ожидание лимита: %w", domain.ErrFetch, operation, err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %s: marshal request: %w", domain.ErrFetch, operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %s: build request: %w", domain.ErrFetch, operation, err)
	}
	c.applyHeaders(req, token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("dramabox", operation, "api", start, err)
		return envelope{}, fmt.Errorf("%w: %s: do request: %w", domain.ErrFetch, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, resp.Body)
		metrics.ObserveNetworkRequest("dramabox", operation, "api", start, errAuthRejected)
		if token == "" {
			return envelope{}, fmt.Errorf("%s: unexpected status %d", operation, resp.StatusCode)
		}
		return envelope{}, errAuthRejected
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("%w: %s: status %d: %s", domain.ErrFetch, operation, resp.StatusCode, strings.TrimSpace(string(data)))
		metrics.ObserveNetworkRequest("dramabox", operation, "api", start, err)
		return envelope{}, err
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.ObserveNetworkRequest("dramabox", operation, "api", start, err)
		return envelope{}, fmt.Errorf("%w: %s: decode response: %w", domain.ErrFetch, operation, err)
	}
	metrics.ObserveNetworkRequest("dramabox", operation, "api", start, nil)
	return env, nil
}

func (c *Client) applyHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", "okhttp/4.10.0")
	req.Header.Set("Version", "430")
	req.Header.Set("Vn", "4.3.0")
	req.Header.Set("Cid", "DRA1000042")
	req.Header.Set("Package-Name", "com.storymatrix.drama")
	req.Header.Set("Apn", "2")
	req.Header.Set("P", "43")
	req.Header.Set("Store-Source", "store_google")
	req.Header.Set("Device-Id", c.identity.DeviceID)
	req.Header.Set("Android-Id", c.identity.AndroidID)
	req.Header.Set("Language", c.identity.Language)
	req.Header.Set("Current-Language", c.identity.Language)
	req.Header.Set("Country-Code", c.identity.Country)
	if token != "" {
		req.Header.Set("Tn", "Bearer "+token)
	}
}

func isAuthRejected(env envelope) bool {
	return env.Status == authRejectedStatus && strings.EqualFold(strings.TrimSpace(env.Message), authRejectedMessage)
}
