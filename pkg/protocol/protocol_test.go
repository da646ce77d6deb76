package protocol

import "testing"

func TestParseRoundTrip(t *testing.T) {
	m, err := Parse("ALL:stage:greeting:abc-123:EMOVOX")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Verb != "STAGE" || m.Noun != "GREETING" || m.From != "EMOVOX" {
		t.Fatalf("Parse() = %+v", m)
	}
	if len(m.Args) != 1 || m.Args[0] != "abc-123" {
		t.Fatalf("Args = %v, want [abc-123]", m.Args)
	}
	if m.String() != "ALL:STAGE:GREETING:abc-123:EMOVOX" {
		t.Fatalf("String() = %q", m.String())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, line := range []string{"", "ALL:ON:LAMP", "ALL:ON:LAMP X:ME", "A$:ON:LAMP:ME", "ALL:ON:LA$MP:ME"} {
		if _, err := Parse(line); err == nil {
			t.Fatalf("Parse(%q) expected error", line)
		}
	}
}

func TestToken(t *testing.T) {
	cases := map[string]string{
		"happy":             "HAPPY",
		"I am fine":         "I_AM_FINE",
		"[LLM unavailable]": "_LLM_UNAVAILABLE_",
		"  ":                "_",
	}
	for in, want := range cases {
		if got := Token(in); got != want {
			t.Fatalf("Token(%q) = %q, want %q", in, got, want)
		}
	}
}
