package checkin

import (
	"fmt"
	"strings"
)

// answerPlaceholder substitutes absent answers at assembly time only; stored
// answers never contain it.
const answerPlaceholder = "—"

// MediaItem is one entry of the forwarded media batch.
type MediaItem struct {
	FileID  string
	Caption string
}

// Assembled is the pair of payloads forwarded to the administrator.
type Assembled struct {
	Summary string
	Media   []MediaItem
}

// Assemble renders a completed submission into the forwarded summary and the
// ordered media batch. Pure and stateless. The summary lists every catalog
// question in fixed order; the first media item's caption embeds the
// submitter plus the full slot order so photo intent survives even if the
// per-item captions are stripped downstream.
func Assemble(chatID int64, from string, sub *Submission) Assembled {
	var b strings.Builder
	fmt.Fprintf(&b, "New check-in from %s (chat %d)\n", from, chatID)
	for _, q := range Questions {
		answer, ok := sub.Answers[q.Key]
		if !ok || answer == "" {
			answer = answerPlaceholder
		}
		fmt.Fprintf(&b, "%s: %s\n", q.Label, answer)
	}

	media := make([]MediaItem, 0, len(sub.Photos))
	for i, p := range sub.Photos {
		caption := p.Slot
		if i == 0 {
			slots := make([]string, len(sub.Photos))
			for j, sp := range sub.Photos {
				slots[j] = sp.Slot
			}
			caption = fmt.Sprintf("%s — photo order: %s", from, strings.Join(slots, ", "))
		}
		media = append(media, MediaItem{FileID: p.FileID, Caption: caption})
	}

	return Assembled{Summary: strings.TrimRight(b.String(), "\n"), Media: media}
}
