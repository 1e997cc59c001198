package bot

import (
	"fmt"
	"strings"
)

const itemsPerPage = 8

// paginate splits entries into messages of itemsPerPage, each headed by title
// and a page counter when there is more than one page.
func paginate(title string, entries []string) []string {
	if len(entries) == 0 {
		return []string{title}
	}

	pages := (len(entries) + itemsPerPage - 1) / itemsPerPage
	out := make([]string, 0, pages)
	for page := 0; page < pages; page++ {
		startIdx := page * itemsPerPage
		endIdx := startIdx + itemsPerPage
		if endIdx > len(entries) {
			endIdx = len(entries)
		}

		var message strings.Builder
		message.WriteString(title)
		message.WriteString("\n")
		if pages > 1 {
			message.WriteString(fmt.Sprintf("Page %d of %d\n", page+1, pages))
		}
		message.WriteString("\n")
		for i, entry := range entries[startIdx:endIdx] {
			message.WriteString(fmt.Sprintf("%d. %s\n", startIdx+i+1, entry))
		}
		out = append(out, strings.TrimRight(message.String(), "\n"))
	}
	return out
}
