package voice

import (
	"context"

	"github.com/ent0n29/voicediary/internal/audio"
)

// Transcription is the ephemeral result of one speech-to-text call.
type Transcription struct {
	Text       string
	Format     audio.Format
	SizeBytes  int
	DurationMS int64 // 0 when the provider does not report duration
}

// Synthesis is the ephemeral result of one text-to-speech call.
type Synthesis struct {
	Audio  []byte
	Format audio.Format
}

// SpeechToText converts recorded audio into text.
type SpeechToText interface {
	Transcribe(ctx context.Context, data []byte, format audio.Format) (Transcription, error)
}

// TextToSpeech converts text into spoken audio.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) (Synthesis, error)
}
