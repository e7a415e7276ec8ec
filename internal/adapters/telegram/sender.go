package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
	"dramabox-bot/internal/usecase/delivery"
	"dramabox-bot/internal/usecase/session"
)

// API: часть клиента Bot API, которой пользуется бот. *tgbotapi.BotAPI её реализует.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender отправляет видео серий в Telegram.
type Sender struct {
	api API
	log zerolog.Logger
}

var _ delivery.Transport = (*Sender)(nil)

// NewSender создаёт отправителя.
func NewSender(api API, log zerolog.Logger) *Sender {
	return &Sender{api: api, log: log}
}

// SendVideo отправляет видео по ссылке или из файла с кнопками соседних серий.
func (s *Sender) SendVideo(ctx context.Context, video delivery.Video) error {
	var file tgbotapi.RequestFileData
	operation := "send_video_url"
	if video.FilePath != "" {
		file = tgbotapi.FilePath(video.FilePath)
		operation = "send_video_file"
	} else {
		file = tgbotapi.FileURL(video.URL)
	}
	msg := tgbotapi.NewVideo(video.ChatID, file)
	msg.Caption = TruncateCaption(video.Caption)
	msg.SupportsStreaming = true
	if markup := NeighbourKeyboard(video.BookID, video.Prev, video.Next); markup != nil {
		msg.ReplyMarkup = markup
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := s.api.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", operation, strconv.FormatInt(video.ChatID, 10), start, err)
	if err != nil {
		if IsWrongContent(err) {
			return fmt.Errorf("%w: %w", domain.ErrWrongContent, err)
		}
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("отправка видео: %w", err)
	}
	return nil
}

// SendPromo отправляет промо-сообщение.
func (s *Sender) SendPromo(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	start := time.Now()
	_, err := s.api.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_promo", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("отправка промо: %w", err)
	}
	return nil
}

// NeighbourKeyboard строит кнопки перехода к предыдущей и следующей серии.
// На границах списка соответствующей кнопки нет; без соседей возвращается nil.
func NeighbourKeyboard(bookID string, prev, next *domain.Chapter) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if prev != nil {
		if btn, ok := ActionButton("⬅️ Предыдущая серия", session.ChapterAction(prev.ID, bookID)); ok {
			row = append(row, btn)
		}
	}
	if next != nil {
		if btn, ok := ActionButton("Следующая серия ➡️", session.ChapterAction(next.ID, bookID)); ok {
			row = append(row, btn)
		}
	}
	if len(row) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}
