package bot

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dramabox-bot/internal/adapters/telegram"
	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
	"dramabox-bot/internal/usecase/delivery"
	"dramabox-bot/internal/usecase/session"
)

var linkRegex = regexp.MustCompile(`(?i)https?://app\.dramaocean\.com/db_land_page/\S*`)

// Catalogs загружает каталоги и отдаёт их из кэша.
type Catalogs interface {
	Load(ctx context.Context, chatID int64, bookID string) (domain.Catalog, error)
	Lookup(ctx context.Context, bookID string) (domain.Catalog, error)
}

// Deliverer отправляет серию пользователю.
type Deliverer interface {
	Deliver(ctx context.Context, req delivery.Request) (delivery.Outcome, error)
}

// Handler обрабатывает апдейты бота.
type Handler struct {
	api       telegram.API
	log       zerolog.Logger
	catalogs  Catalogs
	sessions  *session.Resolver
	deliverer Deliverer
	keyboards Keyboards
}

// NewHandler создаёт обработчик.
func NewHandler(api telegram.API, log zerolog.Logger, catalogs Catalogs, deliverer Deliverer, preferredCDN string) *Handler {
	return &Handler{
		api:       api,
		log:       log,
		catalogs:  catalogs,
		sessions:  session.NewResolver(catalogs),
		deliverer: deliverer,
		keyboards: NewKeyboards(preferredCDN, log),
	}
}

// ExtractBookID достаёт идентификатор сериала из ссылки DramaBox в тексте.
func ExtractBookID(text string) (string, bool) {
	raw := linkRegex.FindString(text)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	bid := strings.TrimSpace(u.Query().Get("bid"))
	if bid == "" || strings.Contains(bid, ":") {
		return "", false
	}
	return bid, true
}

// HandleUpdate обрабатывает входящий апдейт. Паника не выходит за пределы апдейта.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Int("update_id", upd.UpdateID).Msg("bot: паника при обработке апдейта")
			if chatID, ok := updateChatID(upd); ok {
				h.reply(chatID, "Что-то пошло не так. Попробуйте ещё раз.", nil)
			}
		}
	}()

	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func updateChatID(upd tgbotapi.Update) (int64, bool) {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.reply(msg.Chat.ID, buildStartMessage(), nil)
	case strings.HasPrefix(text, "/help"):
		h.reply(msg.Chat.ID, buildHelpMessage(), nil)
	default:
		bookID, ok := ExtractBookID(text)
		if !ok {
			h.reply(msg.Chat.ID, "Пришлите ссылку вида https://app.dramaocean.com/db_land_page/...?bid=... или используйте /help", nil)
			return
		}
		h.handleLink(ctx, msg.Chat.ID, bookID)
	}
}

func (h *Handler) handleLink(ctx context.Context, chatID int64, bookID string) {
	loading, _ := h.send(tgbotapi.NewMessage(chatID, "⏳ Загружаю список серий…"), "send_message", chatID)
	defer h.deleteMessage(chatID, loading.MessageID)

	catalog, err := h.catalogs.Load(ctx, chatID, bookID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Str("book", bookID).Msg("bot: не удалось собрать каталог")
		h.reply(chatID, loadErrorText(err), nil)
		return
	}
	if len(catalog.Chapters) == 0 {
		h.reply(chatID, "У этого сериала пока нет доступных серий.", nil)
		return
	}

	markup, _ := h.keyboards.ChapterMenu(catalog, 0)
	caption := CatalogCaption(catalog)
	if catalog.Cover != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(catalog.Cover))
		photo.Caption = caption
		photo.ReplyMarkup = markup
		if _, err := h.send(photo, "send_photo", chatID); err == nil {
			return
		}
	}
	h.reply(chatID, caption, &markup)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	answered := false
	answer := func(text string, alert bool) {
		if answered {
			return
		}
		answered = true
		h.answerCallback(cb, text, alert)
	}
	defer answer("", false)

	if cb.Message == nil {
		return
	}
	state, err := h.sessions.Resolve(ctx, cb.Data)
	if err != nil {
		text, alert := callbackErrorText(err)
		h.log.Debug().Err(err).Str("data", cb.Data).Msg("bot: не удалось восстановить состояние кнопки")
		answer(text, alert)
		return
	}

	switch state.Action.Kind {
	case session.KindPage:
		markup, _ := h.keyboards.ChapterMenu(state.Catalog, state.Action.Page)
		h.showMenu(cb.Message, CatalogCaption(state.Catalog), markup, false)
	case session.KindChapter:
		markup := h.keyboards.QualityMenu(state.Catalog.BookID, state.Chapter, state.Position)
		// Из сообщения с видео меню качеств открывается новой карточкой.
		h.showMenu(cb.Message, ChapterCaption(state.Catalog, state.Chapter), markup, cb.Message.Video != nil)
	case session.KindQuality:
		if !state.Chapter.HasQuality(state.Action.Quality) {
			text, alert := callbackErrorText(domain.ErrQualityNotFound)
			answer(text, alert)
			return
		}
		answer("⏳ Отправляю серию…", false)
		h.deliver(ctx, cb.Message, state)
	}
}

func (h *Handler) deliver(ctx context.Context, menu *tgbotapi.Message, state session.State) {
	chatID := menu.Chat.ID
	if menu.Video == nil {
		h.deleteMessage(chatID, menu.MessageID)
	}
	loading, _ := h.send(tgbotapi.NewMessage(chatID, "⏳ Загружаю видео…"), "send_message", chatID)

	prev, next := state.Catalog.Neighbours(state.Position)
	outcome, err := h.deliverer.Deliver(ctx, delivery.Request{
		ChatID:  chatID,
		Catalog: state.Catalog,
		Chapter: state.Chapter,
		Quality: state.Action.Quality,
		Prev:    prev,
		Next:    next,
	})
	h.deleteMessage(chatID, loading.MessageID)

	switch {
	case err != nil:
		h.log.Error().Err(err).Int64("chat", chatID).Str("chapter", state.Chapter.ID).Msg("bot: ошибка доставки серии")
		h.reply(chatID, "Не удалось отправить серию. Попробуйте позже.", nil)
	case outcome == delivery.OutcomeAllSourcesFailed:
		h.reply(chatID, "😔 Не получилось отправить серию в этом качестве. Попробуйте другое качество или другую серию.", nil)
	}
}

// showMenu меняет подпись и кнопки сообщения или отправляет новую карточку.
func (h *Handler) showMenu(msg *tgbotapi.Message, text string, markup tgbotapi.InlineKeyboardMarkup, asNew bool) {
	chatID := msg.Chat.ID
	var (
		edit      tgbotapi.Chattable
		operation string
	)
	switch {
	case asNew:
		h.reply(chatID, text, &markup)
		return
	case len(msg.Photo) > 0:
		cfg := tgbotapi.NewEditMessageCaption(chatID, msg.MessageID, text)
		cfg.ReplyMarkup = &markup
		edit, operation = cfg, "edit_caption"
	default:
		cfg := tgbotapi.NewEditMessageText(chatID, msg.MessageID, text)
		cfg.ReplyMarkup = &markup
		edit, operation = cfg, "edit_text"
	}
	start := time.Now()
	_, err := h.api.Request(edit)
	metrics.ObserveNetworkRequest("telegram_bot", operation, strconv.FormatInt(chatID, 10), start, err)
	if err != nil && !isNotModified(err) {
		h.log.Error().Err(err).Msg("bot: не удалось обновить меню")
	}
}

func (h *Handler) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	cfg := tgbotapi.NewCallback(cb.ID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(cb.ID, text)
	}
	start := time.Now()
	_, err := h.api.Request(cfg)
	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", strconv.FormatInt(userID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось ответить на callback")
	}
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	for i, part := range telegram.SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if i == 0 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		if _, err := h.send(msg, "send_message", chatID); err != nil {
			return
		}
	}
}

func (h *Handler) send(c tgbotapi.Chattable, operation string, chatID int64) (tgbotapi.Message, error) {
	start := time.Now()
	msg, err := h.api.Send(c)
	metrics.ObserveNetworkRequest("telegram_bot", operation, strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		h.log.Error().Err(err).Str("operation", operation).Int64("chat", chatID).Msg("bot: не удалось отправить сообщение")
	}
	return msg, err
}

func (h *Handler) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	start := time.Now()
	_, err := h.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	metrics.ObserveNetworkRequest("telegram_bot", "delete_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		h.log.Debug().Err(err).Int("message", messageID).Msg("bot: не удалось удалить сообщение")
	}
}

func isNotModified(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

func loadErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidResponse):
		return "Не удалось обработать ответ DramaBox. Проверьте ссылку или попробуйте позже."
	case errors.Is(err, domain.ErrAuthExhausted), errors.Is(err, domain.ErrTokenAcquisition), errors.Is(err, domain.ErrFetch):
		return "Не удалось получить данные DramaBox. Попробуйте позже."
	default:
		return "Не удалось обработать ссылку. Попробуйте позже."
	}
}

func callbackErrorText(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return "Сессия истекла. Отправьте ссылку на сериал ещё раз.", true
	case errors.Is(err, domain.ErrChapterNotFound):
		return "Серия не найдена", false
	case errors.Is(err, domain.ErrQualityNotFound):
		return "Это качество недоступно", false
	case errors.Is(err, domain.ErrMalformedAction):
		return "Кнопка устарела. Отправьте ссылку ещё раз.", false
	default:
		return "Не удалось обработать нажатие", false
	}
}

func buildStartMessage() string {
	lines := []string{
		"👋 Привет! Я помогу смотреть сериалы DramaBox прямо в Telegram.",
		"",
		"Как пользоваться:",
		"1. Откройте сериал в приложении DramaBox и скопируйте ссылку «Поделиться».",
		"2. Пришлите ссылку сюда: https://app.dramaocean.com/db_land_page/...?bid=...",
		"3. Выберите серию и качество, и я пришлю видео.",
		"",
		"Подробнее: /help",
	}
	return strings.Join(lines, "\n")
}

func buildHelpMessage() string {
	lines := []string{
		"📖 Команды:",
		"• /start — приветствие.",
		"• /help — эта справка.",
		"",
		"Ссылка на сериал открывает карточку со списком серий.",
		"Кнопки «Назад» и «Вперёд» листают список по 10 серий.",
		"Под видео есть кнопки перехода к соседним сериям.",
		"",
		"Если кнопки перестали работать, значит сессия истекла: пришлите ссылку заново.",
	}
	return strings.Join(lines, "\n")
}
