package session

import (
	"fmt"
	"strings"
)

const DefaultRole = "empathetic companion"

const promptTemplate = `You are an %s guiding a structured emotional interaction.

The user's detected emotion is: %s.
Acknowledge this emotion directly in your reply.
Then respond empathetically and naturally to what they said.
Finally, guide them smoothly into the next activity: %s.
Keep your reply short (2-3 sentences), conversational, and human-like.
Do not output lists, numbered steps, or meta-instructions.
Do not restart the conversation or re-introduce yourself.
Avoid repeating the same question twice.
Always continue naturally from the conversation so far.

Conversation so far:
%s
`

// Compose builds the directive prompt for one speak phase. The output depends
// only on its arguments.
func Compose(direction, emotion, digest, role string) string {
	if strings.TrimSpace(role) == "" {
		role = DefaultRole
	}
	if strings.TrimSpace(emotion) == "" {
		emotion = "neutral"
	}
	return fmt.Sprintf(promptTemplate, role, emotion, direction, digest)
}
