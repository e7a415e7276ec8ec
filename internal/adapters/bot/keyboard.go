package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dramabox-bot/internal/adapters/telegram"
	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/usecase/session"
)

const (
	chapterColumns = 2
	qualityColumns = 3
)

// Keyboards строит inline-меню серий и качеств.
type Keyboards struct {
	preferredCDN string
	log          zerolog.Logger
}

// NewKeyboards создаёт построитель клавиатур.
func NewKeyboards(preferredCDN string, log zerolog.Logger) Keyboards {
	return Keyboards{preferredCDN: preferredCDN, log: log}
}

// ChapterMenu возвращает страницу меню серий и саму страницу после нормализации.
func (k Keyboards) ChapterMenu(catalog domain.Catalog, page int) (tgbotapi.InlineKeyboardMarkup, session.Window) {
	window := session.PageWindow(page, len(catalog.Chapters))
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, ch := range catalog.Chapters[window.Start:window.End] {
		btn, ok := k.button(chapterLabel(ch), session.ChapterAction(ch.ID, catalog.BookID))
		if !ok {
			continue
		}
		row = append(row, btn)
		if len(row) == chapterColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if window.HasPrev {
		if btn, ok := k.button("⬅️ Назад", session.PageAction(window.Page-1, catalog.BookID)); ok {
			nav = append(nav, btn)
		}
	}
	if window.HasNext {
		if btn, ok := k.button("Вперёд ➡️", session.PageAction(window.Page+1, catalog.BookID)); ok {
			nav = append(nav, btn)
		}
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}, window
}

// QualityMenu возвращает кнопки качеств серии и кнопку возврата к списку.
// Качества берутся у предпочтительного CDN, если он есть, иначе у первого источника.
func (k Keyboards) QualityMenu(bookID string, chapter domain.Chapter, position int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if src, ok := chapter.MenuSource(k.preferredCDN); ok {
		seen := make(map[int]struct{}, len(src.Videos))
		var row []tgbotapi.InlineKeyboardButton
		for _, v := range src.Videos {
			if _, dup := seen[v.Quality]; dup {
				continue
			}
			seen[v.Quality] = struct{}{}
			btn, ok := k.button(fmt.Sprintf("%dp", v.Quality), session.QualityAction(chapter.ID, v.Quality, bookID))
			if !ok {
				continue
			}
			row = append(row, btn)
			if len(row) == qualityColumns {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if back, ok := k.button("↩️ К списку серий", session.PageAction(session.PageOf(position), bookID)); ok {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(back))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (k Keyboards) button(label, data string) (tgbotapi.InlineKeyboardButton, bool) {
	btn, ok := telegram.ActionButton(label, data)
	if !ok {
		k.log.Warn().Str("data", data).Int("len", len(data)).Msg("bot: данные кнопки не разбираются или не помещаются в лимит, кнопка пропущена")
	}
	return btn, ok
}

func chapterLabel(ch domain.Chapter) string {
	if name := strings.TrimSpace(ch.Name); name != "" {
		return "▶️ " + name
	}
	return fmt.Sprintf("▶️ Серия %d", ch.Index)
}

// CatalogCaption формирует подпись карточки сериала.
func CatalogCaption(catalog domain.Catalog) string {
	lines := []string{
		"🎬 " + fallback(catalog.Title, "Без названия"),
		"",
		fmt.Sprintf("📺 Всего серий: %d", catalog.ChapterCount),
	}
	if len(catalog.Chapters) < catalog.ChapterCount {
		lines = append(lines, fmt.Sprintf("📥 Доступно: %d", len(catalog.Chapters)))
	}
	if catalog.PlayCount != "" {
		lines = append(lines, "👁 Просмотров: "+catalog.PlayCount)
	}
	if intro := strings.TrimSpace(catalog.Introduction); intro != "" {
		lines = append(lines, "", intro)
	}
	lines = append(lines, "", "Выберите серию:")
	return telegram.TruncateCaption(strings.Join(lines, "\n"))
}

// ChapterCaption формирует подпись меню качеств.
func ChapterCaption(catalog domain.Catalog, chapter domain.Chapter) string {
	name := chapter.Name
	if name == "" {
		name = fmt.Sprintf("Серия %d", chapter.Index)
	}
	lines := []string{
		"🎬 " + fallback(catalog.Title, "Без названия"),
		"📺 " + name,
		"",
		"Выберите качество:",
	}
	return telegram.TruncateCaption(strings.Join(lines, "\n"))
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
