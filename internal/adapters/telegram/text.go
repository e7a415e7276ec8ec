package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dramabox-bot/internal/usecase/session"
)

const (
	captionLimit = 1024
	// CallbackDataLimit: максимальная длина данных inline-кнопки в байтах.
	CallbackDataLimit = 64
)

// TruncateCaption обрезает подпись до лимита Telegram, добавляя многоточие.
func TruncateCaption(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= captionLimit {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:captionLimit-1])) + "…"
}

// CallbackButton создаёт inline-кнопку. Если данные не помещаются в лимит Telegram, ok=false.
func CallbackButton(label, data string) (tgbotapi.InlineKeyboardButton, bool) {
	if data == "" || len(data) > CallbackDataLimit {
		return tgbotapi.InlineKeyboardButton{}, false
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, data), true
}

// ActionButton создаёт кнопку с действием бота. Кнопка не создаётся, если
// данные не помещаются в лимит или не разбираются обратно в то же действие,
// например когда идентификатор серии содержит разделитель.
func ActionButton(label, data string) (tgbotapi.InlineKeyboardButton, bool) {
	if _, err := session.ParseAction(data); err != nil {
		return tgbotapi.InlineKeyboardButton{}, false
	}
	return CallbackButton(label, data)
}

var wrongContentMarkers = []string{
	"wrong type of the web page content",
	"failed to get http url content",
	"wrong file identifier/http url specified",
	"wrong remote file identifier specified",
}

// IsWrongContent сообщает, что Telegram не смог принять видео по ссылке.
// Определяется по тексту ошибки Bot API.
func IsWrongContent(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range wrongContentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
