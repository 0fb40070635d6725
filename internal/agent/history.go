package agent

import "github.com/KaramelBytes/boardsight/internal/ai"

// DefaultHistoryLimit bounds the number of stored turns.
const DefaultHistoryLimit = 40

// History is the conversation of one session, oldest turn first.
type History struct {
	limit int
	turns []ai.Message
}

// NewHistory returns an empty history keeping at most limit turns.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append adds a turn to the end.
func (h *History) Append(role, content string) {
	h.turns = append(h.turns, ai.Message{Role: role, Content: content})
}

// DropLast removes the most recent turn, if any.
func (h *History) DropLast() {
	if len(h.turns) > 0 {
		h.turns = h.turns[:len(h.turns)-1]
	}
}

// Trim keeps only the most recent limit turns once the bound is exceeded.
func (h *History) Trim() {
	if n := len(h.turns); n > h.limit {
		h.turns = append([]ai.Message(nil), h.turns[n-h.limit:]...)
	}
}

// Messages returns a copy of the stored turns.
func (h *History) Messages() []ai.Message {
	return append([]ai.Message(nil), h.turns...)
}

func (h *History) Len() int { return len(h.turns) }
