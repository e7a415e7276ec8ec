package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/usecase/delivery"
)

type stubAPI struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
}

func (s *stubAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{MessageID: 100 + len(s.sent)}, nil
}

func (s *stubAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.requested = append(s.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *stubAPI) callbacks() []tgbotapi.CallbackConfig {
	var out []tgbotapi.CallbackConfig
	for _, c := range s.requested {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

type stubCatalogs struct {
	catalogs map[string]domain.Catalog
	loadErr  error
}

func (s *stubCatalogs) Load(_ context.Context, _ int64, bookID string) (domain.Catalog, error) {
	if s.loadErr != nil {
		return domain.Catalog{}, s.loadErr
	}
	return s.catalogs[bookID], nil
}

func (s *stubCatalogs) Lookup(_ context.Context, bookID string) (domain.Catalog, error) {
	c, ok := s.catalogs[bookID]
	if !ok {
		return domain.Catalog{}, domain.ErrSessionExpired
	}
	return c, nil
}

type stubDeliverer struct {
	requests []delivery.Request
	outcome  delivery.Outcome
	panicMsg string
}

func (s *stubDeliverer) Deliver(_ context.Context, req delivery.Request) (delivery.Outcome, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.requests = append(s.requests, req)
	return s.outcome, nil
}

func testCatalog(n int) domain.Catalog {
	c := domain.Catalog{BookID: "42", Title: "Драма", Cover: "https://img/cover.jpg", ChapterCount: n}
	for i := 1; i <= n; i++ {
		c.Chapters = append(c.Chapters, domain.Chapter{
			ID:    "ch" + strconv.Itoa(i),
			Index: i,
			Sources: []domain.CDNSource{{Domain: "nakavideo.dramaboxdb.com", Videos: []domain.QualityVariant{
				{Quality: 540, URL: "https://v/540"}, {Quality: 720, URL: "https://v/720"},
			}}},
		})
	}
	return c
}

func newTestHandler(catalogs *stubCatalogs, deliverer *stubDeliverer) (*Handler, *stubAPI) {
	api := &stubAPI{}
	return NewHandler(api, zerolog.Nop(), catalogs, deliverer, "nakavideo.dramaboxdb.com"), api
}

func callback(data string, photo bool) tgbotapi.Update {
	msg := &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: 1}}
	if photo {
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "p"}}
	}
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", From: &tgbotapi.User{ID: 1}, Message: msg, Data: data}}
}

func TestExtractBookID(t *testing.T) {
	id, ok := ExtractBookID("смотри https://app.dramaocean.com/db_land_page/share?bid=41000102902&lang=in круто")
	if !ok || id != "41000102902" {
		t.Fatalf("ожидали 41000102902, получили %q %v", id, ok)
	}
	for _, text := range []string{"привет", "https://example.com/?bid=1", "https://app.dramaocean.com/db_land_page/x?lang=in"} {
		if _, ok := ExtractBookID(text); ok {
			t.Fatalf("%q: не ожидали идентификатор", text)
		}
	}
}

func TestHandleLinkSendsCatalogCard(t *testing.T) {
	catalogs := &stubCatalogs{catalogs: map[string]domain.Catalog{"42": testCatalog(12)}}
	h, api := newTestHandler(catalogs, &stubDeliverer{})

	h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "https://app.dramaocean.com/db_land_page/?bid=42",
	}})

	var photo *tgbotapi.PhotoConfig
	for _, c := range api.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			photo = &p
		}
	}
	if photo == nil {
		t.Fatalf("ожидали карточку с обложкой, отправлено %d сообщений", len(api.sent))
	}
	markup := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	// 10 серий по 2 в ряд и ряд навигации.
	if len(markup.InlineKeyboard) != 6 {
		t.Fatalf("ожидали 6 рядов, получили %d", len(markup.InlineKeyboard))
	}
	nav := markup.InlineKeyboard[5]
	if len(nav) != 1 || *nav[0].CallbackData != "p:1:42" {
		t.Fatalf("ожидали только кнопку вперёд, получили %+v", nav)
	}
}

func TestHandleLinkReportsFetchFailure(t *testing.T) {
	h, api := newTestHandler(&stubCatalogs{loadErr: domain.ErrAuthExhausted}, &stubDeliverer{})

	h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "https://app.dramaocean.com/db_land_page/?bid=42",
	}})

	last, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	if !ok || last.Text != loadErrorText(domain.ErrAuthExhausted) {
		t.Fatalf("ожидали сообщение об ошибке загрузки, получили %+v", api.sent[len(api.sent)-1])
	}
}

func TestHandleLinkHidesUnclassifiedError(t *testing.T) {
	storeErr := errors.New("redis: dial tcp 10.0.0.5:6379: connection refused")
	h, api := newTestHandler(&stubCatalogs{loadErr: storeErr}, &stubDeliverer{})

	h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "https://app.dramaocean.com/db_land_page/?bid=42",
	}})

	last, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("ожидали текстовое сообщение, получили %T", api.sent[len(api.sent)-1])
	}
	if strings.Contains(last.Text, "10.0.0.5") || strings.Contains(last.Text, "redis") {
		t.Fatalf("текст ошибки не должен попадать пользователю: %q", last.Text)
	}
	if last.Text != loadErrorText(context.DeadlineExceeded) {
		t.Fatalf("ожидали общее сообщение, получили %q", last.Text)
	}
}

func TestCallbackPageEditsMarkup(t *testing.T) {
	catalogs := &stubCatalogs{catalogs: map[string]domain.Catalog{"42": testCatalog(12)}}
	h, api := newTestHandler(catalogs, &stubDeliverer{})

	h.HandleUpdate(context.Background(), callback("p:1:42", true))

	edit, ok := api.requested[0].(tgbotapi.EditMessageCaptionConfig)
	if !ok {
		t.Fatalf("ожидали редактирование подписи, получили %T", api.requested[0])
	}
	rows := edit.ReplyMarkup.InlineKeyboard
	if len(rows) != 2 || *rows[1][0].CallbackData != "p:0:42" {
		t.Fatalf("ожидали 2 серии и кнопку назад, получили %+v", rows)
	}
	if len(api.callbacks()) != 1 {
		t.Fatalf("на callback нужно ответить ровно один раз, ответов %d", len(api.callbacks()))
	}
}

func TestCallbackSessionExpiredAlerts(t *testing.T) {
	h, api := newTestHandler(&stubCatalogs{catalogs: map[string]domain.Catalog{}}, &stubDeliverer{})

	h.HandleUpdate(context.Background(), callback("c:ch1:42", true))

	cbs := api.callbacks()
	if len(cbs) != 1 || !cbs[0].ShowAlert {
		t.Fatalf("ожидали алерт об истёкшей сессии, получили %+v", cbs)
	}
}

func TestCallbackQualityMenuHasBackButton(t *testing.T) {
	catalogs := &stubCatalogs{catalogs: map[string]domain.Catalog{"42": testCatalog(12)}}
	h, api := newTestHandler(catalogs, &stubDeliverer{})

	h.HandleUpdate(context.Background(), callback("c:ch11:42", true))

	edit := api.requested[0].(tgbotapi.EditMessageCaptionConfig)
	rows := edit.ReplyMarkup.InlineKeyboard
	if len(rows) != 2 || len(rows[0]) != 2 || *rows[0][1].CallbackData != "q:ch11:720:42" {
		t.Fatalf("неожиданное меню качеств: %+v", rows)
	}
	if *rows[1][0].CallbackData != "p:1:42" {
		t.Fatalf("кнопка возврата должна вести на страницу серии, получили %s", *rows[1][0].CallbackData)
	}
}

func TestCallbackQualityDelivers(t *testing.T) {
	catalogs := &stubCatalogs{catalogs: map[string]domain.Catalog{"42": testCatalog(3)}}
	deliverer := &stubDeliverer{outcome: delivery.OutcomeDelivered}
	h, api := newTestHandler(catalogs, deliverer)

	h.HandleUpdate(context.Background(), callback("q:ch3:720:42", true))

	if len(deliverer.requests) != 1 {
		t.Fatalf("ожидали одну доставку, получили %d", len(deliverer.requests))
	}
	req := deliverer.requests[0]
	if req.Quality != 720 || req.Prev == nil || req.Prev.ID != "ch2" || req.Next != nil {
		t.Fatalf("неожиданный запрос доставки: %+v", req)
	}
	if len(api.callbacks()) != 1 {
		t.Fatalf("ожидали один ответ на callback, получили %d", len(api.callbacks()))
	}
}

func TestCallbackMissingQuality(t *testing.T) {
	catalogs := &stubCatalogs{catalogs: map[string]domain.Catalog{"42": testCatalog(3)}}
	deliverer := &stubDeliverer{}
	h, api := newTestHandler(catalogs, deliverer)

	h.HandleUpdate(context.Background(), callback("q:ch1:1080:42", true))

	if len(deliverer.requests) != 0 {
		t.Fatal("без нужного качества доставки быть не должно")
	}
	cbs := api.callbacks()
	if len(cbs) != 1 || cbs[0].Text != "Это качество недоступно" {
		t.Fatalf("неожиданный ответ: %+v", cbs)
	}
}

func TestHandleUpdateRecoversFromPanic(t *testing.T) {
	catalogs := &stubCatalogs{catalogs: map[string]domain.Catalog{"42": testCatalog(3)}}
	h, api := newTestHandler(catalogs, &stubDeliverer{panicMsg: "boom"})

	h.HandleUpdate(context.Background(), callback("q:ch1:540:42", true))

	if len(api.callbacks()) != 1 {
		t.Fatal("ответ на callback должен уйти даже после паники")
	}
	last, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	if !ok || last.Text != "Что-то пошло не так. Попробуйте ещё раз." {
		t.Fatalf("ожидали общее сообщение об ошибке, получили %+v", api.sent[len(api.sent)-1])
	}
}

func TestLoadErrorTextMapping(t *testing.T) {
	if loadErrorText(domain.ErrInvalidResponse) == loadErrorText(domain.ErrFetch) {
		t.Fatal("некорректный ответ и сетевая ошибка должны различаться")
	}
	if _, alert := callbackErrorText(errors.Join(errors.New("x"), domain.ErrMalformedAction)); alert {
		t.Fatal("устаревшая кнопка отвечается без алерта")
	}
}

func TestChapterMenuSkipsUnparsableChapterIDs(t *testing.T) {
	catalog := testCatalog(3)
	catalog.Chapters[1].ID = "ch:2"
	k := NewKeyboards("nakavideo.dramaboxdb.com", zerolog.Nop())

	markup, _ := k.ChapterMenu(catalog, 0)
	var buttons []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			buttons = append(buttons, *btn.CallbackData)
		}
	}
	if len(buttons) != 2 || buttons[0] != "c:ch1:42" || buttons[1] != "c:ch3:42" {
		t.Fatalf("неожиданные кнопки: %v", buttons)
	}

	quality := k.QualityMenu("42", catalog.Chapters[1], 1)
	if len(quality.InlineKeyboard) != 1 || *quality.InlineKeyboard[0][0].CallbackData != "p:0:42" {
		t.Fatalf("ожидали только кнопку возврата, получили %+v", quality.InlineKeyboard)
	}
}
