package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/ent0n29/voicediary/internal/audio"
	"github.com/ent0n29/voicediary/internal/brain"
	"github.com/ent0n29/voicediary/internal/fault"
	"github.com/ent0n29/voicediary/internal/prompt"
	"github.com/ent0n29/voicediary/internal/voice"
)

// Limits carries the adapter preconditions from configuration.
type Limits struct {
	MaxAudioBytes  int64
	AllowedFormats []audio.Format
	MaxTTSChars    int
	CallTimeout    time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxAudioBytes <= 0 {
		l.MaxAudioBytes = 25 << 20
	}
	if len(l.AllowedFormats) == 0 {
		l.AllowedFormats = []audio.Format{audio.FormatWAV, audio.FormatMP3, audio.FormatM4A}
	}
	if l.MaxTTSChars <= 0 {
		l.MaxTTSChars = 2000
	}
	if l.CallTimeout <= 0 {
		l.CallTimeout = 30 * time.Second
	}
	return l
}

// ASRAdapter wraps the speech-to-text collaborator with precondition
// checks, a per-call deadline, and error normalization.
type ASRAdapter struct {
	stt      voice.SpeechToText
	maxBytes int64
	allowed  map[audio.Format]bool
	timeout  time.Duration
}

func NewASRAdapter(stt voice.SpeechToText, limits Limits) *ASRAdapter {
	limits = limits.withDefaults()
	allowed := make(map[audio.Format]bool, len(limits.AllowedFormats))
	for _, f := range limits.AllowedFormats {
		allowed[f] = true
	}
	return &ASRAdapter{
		stt:      stt,
		maxBytes: limits.MaxAudioBytes,
		allowed:  allowed,
		timeout:  limits.CallTimeout,
	}
}

// Transcribe validates the upload before any network call, then invokes the
// collaborator under the adapter deadline. Empty transcription text is a
// valid result.
func (a *ASRAdapter) Transcribe(ctx context.Context, data []byte, format audio.Format) (voice.Transcription, error) {
	if len(data) == 0 {
		return voice.Transcription{}, fault.Validation("empty_audio", "audio payload is empty")
	}
	if int64(len(data)) > a.maxBytes {
		return voice.Transcription{}, fault.Validation("audio_too_large",
			"audio is %d bytes, maximum is %d", len(data), a.maxBytes)
	}
	if !a.allowed[format] {
		return voice.Transcription{}, fault.Validation("unsupported_format",
			"format %q is not allowed", format)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	tr, err := a.stt.Transcribe(callCtx, data, format)
	if err != nil {
		return voice.Transcription{}, fault.FromCall(ctx, callCtx, "asr_call_failed", err)
	}
	return tr, nil
}

// ChatAdapter wraps the language-model collaborator.
type ChatAdapter struct {
	llm     brain.Conversationalist
	timeout time.Duration
}

func NewChatAdapter(llm brain.Conversationalist, limits Limits) *ChatAdapter {
	return &ChatAdapter{llm: llm, timeout: limits.withDefaults().CallTimeout}
}

// Reflect requires the fixed system directive plus at least one user
// message, and returns the collaborator's reply verbatim.
func (a *ChatAdapter) Reflect(ctx context.Context, messages []prompt.Message) (string, error) {
	if len(messages) < 2 || messages[0].Role != prompt.RoleSystem {
		return "", fault.Validation("malformed_request", "chat request needs a system directive and a user message")
	}
	hasUser := false
	for _, m := range messages[1:] {
		if m.Role == prompt.RoleUser {
			hasUser = true
			break
		}
	}
	if !hasUser {
		return "", fault.Validation("malformed_request", "chat request has no user message")
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.llm.Converse(callCtx, messages)
	if err != nil {
		return "", fault.FromCall(ctx, callCtx, "chat_call_failed", err)
	}
	return reply, nil
}

// TTSAdapter wraps the speech-synthesis collaborator.
type TTSAdapter struct {
	tts      voice.TextToSpeech
	maxChars int
	timeout  time.Duration
}

func NewTTSAdapter(tts voice.TextToSpeech, limits Limits) *TTSAdapter {
	limits = limits.withDefaults()
	return &TTSAdapter{tts: tts, maxChars: limits.MaxTTSChars, timeout: limits.CallTimeout}
}

func (a *TTSAdapter) Synthesize(ctx context.Context, text string) (voice.Synthesis, error) {
	if strings.TrimSpace(text) == "" {
		return voice.Synthesis{}, fault.Validation("empty_text", "text cannot be empty")
	}
	if len(text) > a.maxChars {
		return voice.Synthesis{}, fault.Validation("text_too_long",
			"text is %d chars, maximum is %d", len(text), a.maxChars)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	syn, err := a.tts.Synthesize(callCtx, text)
	if err != nil {
		return voice.Synthesis{}, fault.FromCall(ctx, callCtx, "tts_call_failed", err)
	}
	return syn, nil
}
