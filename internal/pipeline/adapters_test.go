package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/ent0n29/voicediary/internal/fault"
	"github.com/ent0n29/voicediary/internal/prompt"
)

func TestChatAdapterRequiresSystemAndUserMessages(t *testing.T) {
	llm := &llmStub{reply: "ok"}
	a := NewChatAdapter(llm, Limits{})

	cases := []struct {
		name     string
		messages []prompt.Message
	}{
		{"empty request", nil},
		{"system only", []prompt.Message{{Role: prompt.RoleSystem, Content: "persona"}}},
		{"missing system", []prompt.Message{
			{Role: prompt.RoleUser, Content: "hi"},
			{Role: prompt.RoleAssistant, Content: "hello"},
		}},
		{"no user message", []prompt.Message{
			{Role: prompt.RoleSystem, Content: "persona"},
			{Role: prompt.RoleAssistant, Content: "hello"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Reflect(context.Background(), tc.messages)
			if fault.KindOf(err) != fault.KindValidation {
				t.Fatalf("error kind = %v, want validation", fault.KindOf(err))
			}
		})
	}
	if llm.calls != 0 {
		t.Fatalf("collaborator calls = %d, want 0", llm.calls)
	}
}

func TestChatAdapterAcceptsWellFormedRequest(t *testing.T) {
	llm := &llmStub{reply: "a reflective reply"}
	a := NewChatAdapter(llm, Limits{})

	reply, err := a.Reflect(context.Background(), []prompt.Message{
		{Role: prompt.RoleSystem, Content: "persona"},
		{Role: prompt.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Reflect() error = %v", err)
	}
	if reply != "a reflective reply" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestTTSAdapterValidation(t *testing.T) {
	tts := &ttsStub{}
	a := NewTTSAdapter(tts, Limits{MaxTTSChars: 10})

	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "  \n "},
		{"too long", strings.Repeat("a", 11)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Synthesize(context.Background(), tc.text)
			if fault.KindOf(err) != fault.KindValidation {
				t.Fatalf("error kind = %v, want validation", fault.KindOf(err))
			}
		})
	}
	if tts.calls != 0 {
		t.Fatalf("collaborator calls = %d, want 0", tts.calls)
	}
}

func TestLimitsDefaults(t *testing.T) {
	l := Limits{}.withDefaults()
	if l.MaxAudioBytes != 25<<20 {
		t.Fatalf("MaxAudioBytes = %d, want %d", l.MaxAudioBytes, 25<<20)
	}
	if len(l.AllowedFormats) != 3 {
		t.Fatalf("AllowedFormats = %v, want wav/mp3/m4a", l.AllowedFormats)
	}
	if l.MaxTTSChars != 2000 {
		t.Fatalf("MaxTTSChars = %d, want 2000", l.MaxTTSChars)
	}
}
