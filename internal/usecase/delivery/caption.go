package delivery

import (
	"fmt"
	"strings"

	"dramabox-bot/internal/domain"
)

// Caption формирует подпись к видео серии.
func Caption(catalog domain.Catalog, chapter domain.Chapter, quality int) string {
	var b strings.Builder
	title := strings.TrimSpace(catalog.Title)
	if title == "" {
		title = "DramaBox"
	}
	b.WriteString("🎬 ")
	b.WriteString(title)
	b.WriteString("\n")

	name := chapter.Name
	if name == "" {
		name = fmt.Sprintf("Серия %d", chapter.Index)
	}
	fmt.Fprintf(&b, "📺 %s", name)
	if catalog.ChapterCount > 0 {
		fmt.Fprintf(&b, " из %d", catalog.ChapterCount)
	}
	if quality > 0 {
		fmt.Fprintf(&b, " • %dp", quality)
	}
	return b.String()
}
