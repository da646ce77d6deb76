// Package llm talks to the language-model backend. The backend is pluggable:
// a reply-shaped endpoint ({messages} -> {reply}) or any OpenAI-compatible
// chat completions server.
package llm

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"emovox/internal/outcome"
)

const (
	Unavailable   = "[LLM unavailable]"
	SystemPersona = "You are an empathetic conversational agent."
)

var ErrEmptyReply = errors.New("llm: empty reply")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Backend interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Generator wraps a composed prompt as a system+user exchange.
type Generator struct {
	backend Backend
	persona string
}

func NewGenerator(b Backend, persona string) *Generator {
	if strings.TrimSpace(persona) == "" {
		persona = SystemPersona
	}
	return &Generator{backend: b, persona: persona}
}

// Generate never fails; backend errors come back as Degraded(Unavailable).
func (g *Generator) Generate(ctx context.Context, prompt string) outcome.Result[string] {
	reply, err := g.backend.Complete(ctx, []Message{
		{Role: "system", Content: g.persona},
		{Role: "user", Content: prompt},
	})
	if err == nil {
		reply = strings.TrimSpace(reply)
		err = checkReply(reply)
	}
	if err != nil {
		log.Warn("LLM call failed", "err", err)
		return outcome.Degraded(Unavailable, err)
	}
	return outcome.Ok(reply)
}

// checkReply rejects empty replies and the bracketed placeholders that
// reply-shaped servers send in place of an HTTP error.
func checkReply(reply string) error {
	if reply == "" {
		return ErrEmptyReply
	}
	if strings.HasPrefix(reply, "[") && strings.HasSuffix(reply, "]") {
		l := strings.ToLower(reply)
		if strings.Contains(l, "error") || strings.Contains(l, "unavailable") || strings.Contains(l, "no reply") {
			return fmt.Errorf("backend reported %s", reply)
		}
	}
	return nil
}
