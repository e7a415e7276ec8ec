package domain

// Catalog описывает сериал DramaBox вместе с полным списком серий.
type Catalog struct {
	BookID       string    `json:"book_id"`
	Title        string    `json:"title"`
	Cover        string    `json:"cover"`
	Introduction string    `json:"introduction"`
	ChapterCount int       `json:"chapter_count"`
	PlayCount    string    `json:"play_count"`
	Chapters     []Chapter `json:"chapters"`
}

// Chapter описывает одну серию. Index задаёт порядок и не обязан быть непрерывным.
type Chapter struct {
	ID      string      `json:"id"`
	Index   int         `json:"index"`
	Name    string      `json:"name"`
	Sources []CDNSource `json:"sources"`
}

// CDNSource описывает один CDN, раздающий серию в нескольких качествах.
type CDNSource struct {
	Domain string           `json:"domain"`
	Videos []QualityVariant `json:"videos"`
}

// QualityVariant: ссылка на видео в конкретном качестве.
type QualityVariant struct {
	Quality int    `json:"quality"`
	URL     string `json:"url"`
}

// CatalogPage: одна страница ответа API с флагами формы ответа.
type CatalogPage struct {
	Catalog         Catalog
	HasChapterCount bool
	HasChapterList  bool
}

// Usable сообщает, что страница содержит заявленное число серий и список серий.
func (p CatalogPage) Usable() bool {
	return p.HasChapterCount && p.HasChapterList
}

// FindChapter ищет серию по идентификатору и возвращает её позицию в списке.
func (c Catalog) FindChapter(id string) (Chapter, int, bool) {
	for i, ch := range c.Chapters {
		if ch.ID == id {
			return ch, i, true
		}
	}
	return Chapter{}, -1, false
}

// Neighbours возвращает соседние серии для позиции pos; на границах nil.
func (c Catalog) Neighbours(pos int) (prev, next *Chapter) {
	if pos < 0 || pos >= len(c.Chapters) {
		return nil, nil
	}
	if pos > 0 {
		p := c.Chapters[pos-1]
		prev = &p
	}
	if pos < len(c.Chapters)-1 {
		n := c.Chapters[pos+1]
		next = &n
	}
	return prev, next
}

// MenuSource возвращает CDN для меню качеств: предпочтительный домен, иначе первый.
func (ch Chapter) MenuSource(preferred string) (CDNSource, bool) {
	for _, src := range ch.Sources {
		if src.Domain == preferred {
			return src, true
		}
	}
	if len(ch.Sources) == 0 {
		return CDNSource{}, false
	}
	return ch.Sources[0], true
}

// AttemptOrder возвращает источники в порядке попыток доставки:
// предпочтительный домен первым, остальные в исходном порядке.
func (ch Chapter) AttemptOrder(preferred string) []CDNSource {
	ordered := make([]CDNSource, 0, len(ch.Sources))
	preferredAt := -1
	for i, src := range ch.Sources {
		if src.Domain == preferred {
			ordered = append(ordered, src)
			preferredAt = i
			break
		}
	}
	for i, src := range ch.Sources {
		if i == preferredAt {
			continue
		}
		ordered = append(ordered, src)
	}
	return ordered
}

// HasQuality сообщает, есть ли качество хотя бы у одного источника.
func (ch Chapter) HasQuality(quality int) bool {
	for _, src := range ch.Sources {
		if _, ok := src.FindQuality(quality); ok {
			return true
		}
	}
	return false
}

// FindQuality возвращает первый вариант с указанным качеством.
func (s CDNSource) FindQuality(quality int) (QualityVariant, bool) {
	for _, v := range s.Videos {
		if v.Quality == quality {
			return v, true
		}
	}
	return QualityVariant{}, false
}
