package telegram

import "strings"

const messageLimit = 4096

// SplitMessage делит текст на части не длиннее лимита сообщения Telegram.
func SplitMessage(text string) []string {
	return splitByLimit(text, messageLimit)
}

// splitByLimit режет текст по последнему переводу строки перед границей,
// а если его нет, то ровно по границе. Пустые части отбрасываются.
func splitByLimit(text string, limit int) []string {
	rest := []rune(strings.TrimSpace(text))
	if len(rest) == 0 {
		return nil
	}

	var parts []string
	for len(rest) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if rest[i-1] == '\n' {
				cut = i
				break
			}
		}
		if chunk := strings.Trim(string(rest[:cut]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		rest = []rune(strings.TrimLeft(string(rest[cut:]), "\n"))
	}
	if chunk := strings.Trim(string(rest), "\n"); chunk != "" {
		parts = append(parts, chunk)
	}
	return parts
}
