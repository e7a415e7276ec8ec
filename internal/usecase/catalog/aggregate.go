package catalog

import (
	"context"
	"fmt"
	"sort"

	"dramabox-bot/internal/domain"
)

// overshoot: на сколько индексов можно заглянуть за заявленное число серий.
const overshoot = 20

// Result: собранный каталог и статистика обхода.
type Result struct {
	Catalog domain.Catalog
	Pages   int
}

// Aggregate обходит страницы API и собирает полный список серий.
// Обход останавливается, когда собраны все заявленные серии, когда API
// вернул пустую страницу, когда верхний индекс перестал расти или когда
// следующий индекс вышел за chapterCount+20. Неполный каталог не считается ошибкой.
func Aggregate(ctx context.Context, fetcher domain.PageFetcher, bookID string) (Result, error) {
	first, err := fetcher.FetchPage(ctx, bookID, 1)
	if err != nil {
		return Result{}, fmt.Errorf("страница 1: %w", err)
	}
	if !first.Usable() {
		return Result{}, fmt.Errorf("%w: в первой странице нет chapterCount или chapterList", domain.ErrInvalidResponse)
	}

	declared := first.Catalog.ChapterCount
	seen := make(map[string]domain.Chapter, declared)
	highest := merge(seen, first.Catalog.Chapters, 0)
	pages := 1

	for len(seen) < declared {
		next := highest + 1
		if next > declared+overshoot {
			break
		}
		page, err := fetcher.FetchPage(ctx, bookID, next)
		pages++
		if err != nil {
			return Result{}, fmt.Errorf("страница %d: %w", next, err)
		}
		// chapterCount берётся только из первой страницы.
		if !page.HasChapterList || len(page.Catalog.Chapters) == 0 {
			break
		}
		advanced := merge(seen, page.Catalog.Chapters, highest)
		if advanced <= highest {
			break
		}
		highest = advanced
	}

	catalog := first.Catalog
	catalog.BookID = bookID
	catalog.Chapters = sorted(seen)
	return Result{Catalog: catalog, Pages: pages}, nil
}

// merge добавляет серии в карту (повторный id перезаписывается) и возвращает
// максимум из highest и индексов добавленных серий.
func merge(seen map[string]domain.Chapter, chapters []domain.Chapter, highest int) int {
	for _, ch := range chapters {
		seen[ch.ID] = ch
		if ch.Index > highest {
			highest = ch.Index
		}
	}
	return highest
}

func sorted(seen map[string]domain.Chapter) []domain.Chapter {
	out := make([]domain.Chapter, 0, len(seen))
	for _, ch := range seen {
		out = append(out, ch)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index == out[j].Index {
			return out[i].ID < out[j].ID
		}
		return out[i].Index < out[j].Index
	})
	return out
}
