package dramabox

import (
	"bytes"
	"encoding/json"
	"strings"

	"dramabox-bot/internal/domain"
)

// envelope: общая обёртка ответов API.
type envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type bootstrapData struct {
	User struct {
		Token string `json:"token"`
	} `json:"user"`
}

type chapterBatch struct {
	BookID       flexString    `json:"bookId"`
	BookName     string        `json:"bookName"`
	BookCover    string        `json:"bookCover"`
	Introduction string        `json:"introduction"`
	PlayCount    flexString    `json:"playCount"`
	ChapterCount *int          `json:"chapterCount"`
	ChapterList  *[]rawChapter `json:"chapterList"`
}

type rawChapter struct {
	ChapterID    flexString `json:"chapterId"`
	ChapterIndex int        `json:"chapterIndex"`
	ChapterName  string     `json:"chapterName"`
	CDNList      []rawCDN   `json:"cdnList"`
}

type rawCDN struct {
	CDNDomain     string     `json:"cdnDomain"`
	VideoPathList []rawVideo `json:"videoPathList"`
}

type rawVideo struct {
	Quality   int    `json:"quality"`
	VideoPath string `json:"videoPath"`
}

// flexString принимает и строку, и число.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(trimmed)
	return nil
}

func (b chapterBatch) toPage(bookID string) domain.CatalogPage {
	page := domain.CatalogPage{
		Catalog: domain.Catalog{
			BookID:       bookID,
			Title:        strings.TrimSpace(b.BookName),
			Cover:        b.BookCover,
			Introduction: strings.TrimSpace(b.Introduction),
			PlayCount:    string(b.PlayCount),
		},
		HasChapterCount: b.ChapterCount != nil,
		HasChapterList:  b.ChapterList != nil,
	}
	if b.ChapterCount != nil {
		page.Catalog.ChapterCount = *b.ChapterCount
	}
	if b.ChapterList == nil {
		return page
	}
	chapters := make([]domain.Chapter, 0, len(*b.ChapterList))
	for _, raw := range *b.ChapterList {
		if raw.ChapterID == "" {
			continue
		}
		chapters = append(chapters, raw.toChapter())
	}
	page.Catalog.Chapters = chapters
	return page
}

func (r rawChapter) toChapter() domain.Chapter {
	sources := make([]domain.CDNSource, 0, len(r.CDNList))
	for _, cdn := range r.CDNList {
		videos := make([]domain.QualityVariant, 0, len(cdn.VideoPathList))
		for _, v := range cdn.VideoPathList {
			if v.VideoPath == "" {
				continue
			}
			videos = append(videos, domain.QualityVariant{Quality: v.Quality, URL: v.VideoPath})
		}
		sources = append(sources, domain.CDNSource{Domain: cdn.CDNDomain, Videos: videos})
	}
	name := strings.TrimSpace(r.ChapterName)
	return domain.Chapter{ID: string(r.ChapterID), Index: r.ChapterIndex, Name: name, Sources: sources}
}
