package session

import (
	"strings"
	"testing"
)

func TestComposeEmbedsEmotionDirectionAndDigest(t *testing.T) {
	digest := "ASSISTANT: Hi there!\nUSER: I am fine"
	p := Compose("Ask about their weekend.", "happy", digest, "")

	for _, want := range []string{
		"The user's detected emotion is: happy.",
		"next activity: Ask about their weekend.",
		digest,
		"You are an empathetic companion",
		"2-3 sentences",
		"Do not output lists",
		"Do not restart the conversation or re-introduce yourself.",
		"Avoid repeating the same question twice.",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
	if !strings.HasSuffix(strings.TrimRight(p, "\n"), digest) {
		t.Fatalf("digest is not the tail of the prompt:\n%s", p)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	a := Compose("d", "sad", "USER: x", "attentive coach")
	b := Compose("d", "sad", "USER: x", "attentive coach")
	if a != b {
		t.Fatalf("Compose() differs across identical calls")
	}
	if !strings.Contains(a, "You are an attentive coach") {
		t.Fatalf("role not embedded:\n%s", a)
	}
}

func TestComposeDefaultsEmptyEmotionToNeutral(t *testing.T) {
	p := Compose("d", "", "", "")
	if !strings.Contains(p, "detected emotion is: neutral.") {
		t.Fatalf("prompt missing neutral default:\n%s", p)
	}
}
