package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"dramabox-bot/internal/infra/metrics"
	"dramabox-bot/internal/usecase/delivery"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// HTTPDownloader скачивает видео во временный каталог.
type HTTPDownloader struct {
	client *http.Client
	dir    string
	log    zerolog.Logger
}

var _ delivery.Downloader = (*HTTPDownloader)(nil)

// NewHTTPDownloader создаёт загрузчик. timeout ограничивает одно скачивание целиком.
func NewHTTPDownloader(dir string, timeout time.Duration, log zerolog.Logger) *HTTPDownloader {
	if dir == "" {
		dir = "downloads"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPDownloader{client: &http.Client{Timeout: timeout}, dir: dir, log: log}
}

// Download сохраняет файл как <dir>/<name>-<случайный суффикс>.mp4, так что
// одновременные скачивания одной серии не мешают друг другу.
// При ошибке частично записанный файл удаляется.
func (d *HTTPDownloader) Download(ctx context.Context, url, name string) (path string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveNetworkRequest("download", "video", "cdn", start, err)
	}()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("создание каталога %s: %w", d.dir, err)
	}
	safe := unsafeName.ReplaceAllString(name, "_")
	if safe == "" {
		safe = "video"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	file, err := os.CreateTemp(d.dir, safe+"-*.mp4")
	if err != nil {
		return "", fmt.Errorf("создание файла: %w", err)
	}
	path = file.Name()
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("запись файла: %w", err)
	}
	if written == 0 {
		_ = os.Remove(path)
		return "", errors.New("пустой ответ CDN")
	}
	d.log.Debug().Str("path", path).Int64("bytes", written).Dur("took", time.Since(start)).Msg("download: видео скачано")
	return path, nil
}
