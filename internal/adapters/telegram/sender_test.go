package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/usecase/delivery"
	"dramabox-bot/internal/usecase/session"
)

type stubAPI struct {
	sent []tgbotapi.Chattable
	err  error
}

func (s *stubAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{MessageID: len(s.sent)}, s.err
}

func (s *stubAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.sent = append(s.sent, c)
	return &tgbotapi.APIResponse{Ok: s.err == nil}, s.err
}

func TestSendVideoByURLWithNeighbours(t *testing.T) {
	api := &stubAPI{}
	sender := NewSender(api, zerolog.Nop())

	err := sender.SendVideo(context.Background(), delivery.Video{
		ChatID:  5,
		URL:     "https://cdn/720.mp4",
		Caption: "серия",
		BookID:  "42",
		Prev:    &domain.Chapter{ID: "1"},
		Next:    &domain.Chapter{ID: "3"},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	video, ok := api.sent[0].(tgbotapi.VideoConfig)
	if !ok {
		t.Fatalf("ожидали VideoConfig, получили %T", api.sent[0])
	}
	if _, isURL := video.File.(tgbotapi.FileURL); !isURL {
		t.Fatalf("ожидали отправку по ссылке, получили %T", video.File)
	}
	markup, ok := video.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("ожидали две кнопки соседних серий, получили %+v", video.ReplyMarkup)
	}
	if data := *markup.InlineKeyboard[0][1].CallbackData; data != "c:3:42" {
		t.Fatalf("неожиданные данные кнопки: %s", data)
	}
}

func TestSendVideoClassifiesWrongContent(t *testing.T) {
	api := &stubAPI{err: errors.New("Bad Request: wrong type of the web page content")}
	sender := NewSender(api, zerolog.Nop())

	err := sender.SendVideo(context.Background(), delivery.Video{ChatID: 5, URL: "https://cdn/x"})
	if !errors.Is(err, domain.ErrWrongContent) {
		t.Fatalf("ожидали ErrWrongContent, получили %v", err)
	}

	api.err = errors.New("Forbidden: bot was blocked by the user")
	err = sender.SendVideo(context.Background(), delivery.Video{ChatID: 5, FilePath: "/tmp/x.mp4"})
	if err == nil || errors.Is(err, domain.ErrWrongContent) {
		t.Fatalf("блокировка бота не должна считаться ошибкой содержимого: %v", err)
	}
}

func TestNeighbourKeyboardBoundaries(t *testing.T) {
	if NeighbourKeyboard("42", nil, nil) != nil {
		t.Fatal("без соседей клавиатуры быть не должно")
	}
	markup := NeighbourKeyboard("42", nil, &domain.Chapter{ID: "2"})
	if markup == nil || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("ожидали одну кнопку, получили %+v", markup)
	}
}

func TestTruncateCaption(t *testing.T) {
	long := strings.Repeat("я", 2000)
	got := TruncateCaption(long)
	if n := len([]rune(got)); n != captionLimit {
		t.Fatalf("ожидали %d символов, получили %d", captionLimit, n)
	}
	if TruncateCaption(" коротко ") != "коротко" {
		t.Fatal("короткая подпись не должна меняться")
	}
}

func TestCallbackButtonLimit(t *testing.T) {
	if _, ok := CallbackButton("x", strings.Repeat("1", CallbackDataLimit)); !ok {
		t.Fatal("данные на границе лимита допустимы")
	}
	if _, ok := CallbackButton("x", strings.Repeat("1", CallbackDataLimit+1)); ok {
		t.Fatal("данные длиннее лимита должны отклоняться")
	}
}

func TestActionButtonRejectsUnparsableData(t *testing.T) {
	if _, ok := ActionButton("x", session.ChapterAction("a:b", "42")); ok {
		t.Fatal("кнопка с разделителем в идентификаторе серии не должна создаваться")
	}
	if _, ok := ActionButton("x", session.QualityAction("ep:1", 720, "42")); ok {
		t.Fatal("кнопка качества с разделителем в идентификаторе не должна создаваться")
	}
	btn, ok := ActionButton("x", session.ChapterAction("ep1", "42"))
	if !ok || *btn.CallbackData != "c:ep1:42" {
		t.Fatalf("ожидали кнопку c:ep1:42, получили %+v %v", btn, ok)
	}
}

func TestNeighbourKeyboardSkipsUnparsableChapter(t *testing.T) {
	markup := NeighbourKeyboard("42", &domain.Chapter{ID: "a:b"}, &domain.Chapter{ID: "3"})
	if markup == nil || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("ожидали одну кнопку, получили %+v", markup)
	}
	if *markup.InlineKeyboard[0][0].CallbackData != "c:3:42" {
		t.Fatalf("неожиданная кнопка: %s", *markup.InlineKeyboard[0][0].CallbackData)
	}
}
