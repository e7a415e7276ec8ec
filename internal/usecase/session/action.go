package session

import (
	"fmt"
	"strconv"
	"strings"

	"dramabox-bot/internal/domain"
)

// Kind: тип действия, закодированного в кнопке.
type Kind string

const (
	// KindPage: страница меню серий.
	KindPage Kind = "p"
	// KindChapter: меню качеств серии.
	KindChapter Kind = "c"
	// KindQuality: отправка серии в выбранном качестве.
	KindQuality Kind = "q"
)

const separator = ":"

// Action: разобранные данные кнопки. Идентификатор каталога всегда последнее поле.
type Action struct {
	Kind      Kind
	BookID    string
	Page      int
	ChapterID string
	Quality   int
}

// PageAction кодирует переход на страницу меню серий.
func PageAction(page int, bookID string) string {
	return join(KindPage, strconv.Itoa(page), bookID)
}

// ChapterAction кодирует открытие меню качеств серии.
func ChapterAction(chapterID, bookID string) string {
	return join(KindChapter, chapterID, bookID)
}

// QualityAction кодирует запрос на отправку серии.
func QualityAction(chapterID string, quality int, bookID string) string {
	return join(KindQuality, chapterID, strconv.Itoa(quality), bookID)
}

// Encode возвращает строковое представление действия.
func (a Action) Encode() string {
	switch a.Kind {
	case KindPage:
		return PageAction(a.Page, a.BookID)
	case KindChapter:
		return ChapterAction(a.ChapterID, a.BookID)
	case KindQuality:
		return QualityAction(a.ChapterID, a.Quality, a.BookID)
	default:
		return ""
	}
}

func join(kind Kind, fields ...string) string {
	return string(kind) + separator + strings.Join(fields, separator)
}

// ParseAction разбирает данные кнопки.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, separator)
	if len(parts) < 3 {
		return Action{}, fmt.Errorf("%w: %q", domain.ErrMalformedAction, data)
	}
	action := Action{Kind: Kind(parts[0]), BookID: parts[len(parts)-1]}
	if action.BookID == "" {
		return Action{}, fmt.Errorf("%w: пустой идентификатор каталога в %q", domain.ErrMalformedAction, data)
	}

	switch action.Kind {
	case KindPage:
		if len(parts) != 3 {
			return Action{}, fmt.Errorf("%w: %q", domain.ErrMalformedAction, data)
		}
		page, err := strconv.Atoi(parts[1])
		if err != nil || page < 0 {
			return Action{}, fmt.Errorf("%w: номер страницы в %q", domain.ErrMalformedAction, data)
		}
		action.Page = page
	case KindChapter:
		if len(parts) != 3 || parts[1] == "" {
			return Action{}, fmt.Errorf("%w: %q", domain.ErrMalformedAction, data)
		}
		action.ChapterID = parts[1]
	case KindQuality:
		if len(parts) != 4 || parts[1] == "" {
			return Action{}, fmt.Errorf("%w: %q", domain.ErrMalformedAction, data)
		}
		quality, err := strconv.Atoi(parts[2])
		if err != nil {
			return Action{}, fmt.Errorf("%w: качество в %q", domain.ErrMalformedAction, data)
		}
		action.ChapterID = parts[1]
		action.Quality = quality
	default:
		return Action{}, fmt.Errorf("%w: неизвестный тип %q", domain.ErrMalformedAction, parts[0])
	}
	return action, nil
}
