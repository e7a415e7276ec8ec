package session

import (
	"context"
	"fmt"

	"dramabox-bot/internal/domain"
)

// PageSize: число серий на одной странице меню.
const PageSize = 10

// CatalogLookup возвращает каталог из кэша или domain.ErrSessionExpired.
type CatalogLookup interface {
	Lookup(ctx context.Context, bookID string) (domain.Catalog, error)
}

// State: восстановленное состояние по нажатой кнопке.
type State struct {
	Action  Action
	Catalog domain.Catalog
	// Chapter и Position заполнены для действий c и q.
	Chapter  domain.Chapter
	Position int
}

// Resolver восстанавливает состояние пользователя по данным кнопки.
type Resolver struct {
	catalogs CatalogLookup
}

// NewResolver создаёт резолвер.
func NewResolver(catalogs CatalogLookup) *Resolver {
	return &Resolver{catalogs: catalogs}
}

// Resolve разбирает данные кнопки и находит каталог и серию.
func (r *Resolver) Resolve(ctx context.Context, data string) (State, error) {
	action, err := ParseAction(data)
	if err != nil {
		return State{}, err
	}
	catalog, err := r.catalogs.Lookup(ctx, action.BookID)
	if err != nil {
		return State{}, err
	}
	state := State{Action: action, Catalog: catalog, Position: -1}
	if action.Kind == KindPage {
		return state, nil
	}
	chapter, pos, ok := catalog.FindChapter(action.ChapterID)
	if !ok {
		return State{}, fmt.Errorf("%w: %s в книге %s", domain.ErrChapterNotFound, action.ChapterID, action.BookID)
	}
	state.Chapter = chapter
	state.Position = pos
	return state, nil
}

// Window: видимая часть меню серий.
type Window struct {
	Page    int
	Start   int
	End     int
	HasPrev bool
	HasNext bool
}

// PageWindow возвращает границы страницы page для total серий: [10·page, min(10·page+10, total)).
// Страница за пределами списка прижимается к последней.
func PageWindow(page, total int) Window {
	if page < 0 {
		page = 0
	}
	if total > 0 {
		last := (total - 1) / PageSize
		if page > last {
			page = last
		}
	} else {
		page = 0
	}
	start := page * PageSize
	end := start + PageSize
	if end > total {
		end = total
	}
	return Window{
		Page:    page,
		Start:   start,
		End:     end,
		HasPrev: page > 0,
		HasNext: start+PageSize < total,
	}
}

// PageOf возвращает номер страницы меню, на которой находится позиция pos.
func PageOf(pos int) int {
	if pos < 0 {
		return 0
	}
	return pos / PageSize
}
