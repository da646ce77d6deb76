package session

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the conversation log.
type Turn struct {
	Role Role
	Text string
}

// History is the ordered, append-only log of a session. It is owned by the
// Director and never shared between sessions.
//
// TODO: bound or summarize the digest if sessions stop being a fixed seven
// stages; today the prompt grows with every turn.
type History struct {
	turns []Turn
}

func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
}

func (h *History) Len() int { return len(h.turns) }

// Turns returns a copy so callers cannot rewrite logged turns.
func (h *History) Turns() []Turn {
	return append([]Turn(nil), h.turns...)
}

// Digest renders every turn as "ROLE: text", oldest first.
func (h *History) Digest() string {
	lines := make([]string, len(h.turns))
	for i, t := range h.turns {
		lines[i] = strings.ToUpper(string(t.Role)) + ": " + t.Text
	}
	return strings.Join(lines, "\n")
}
