package voice

import (
	"context"

	"github.com/ent0n29/voicediary/internal/audio"
)

// MockProvider is a local fallback used when no Hugging Face key is set.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Transcribe(_ context.Context, data []byte, format audio.Format) (Transcription, error) {
	text := "simulated voice input"
	if len(data) == 0 {
		text = ""
	}
	return Transcription{Text: text, Format: format, SizeBytes: len(data)}, nil
}

func (p *MockProvider) Synthesize(_ context.Context, text string) (Synthesis, error) {
	// A short burst of silence sized to the text keeps playback plausible.
	pcm := make([]byte, 320*len(text))
	wav, err := audio.EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		return Synthesis{}, err
	}
	return Synthesis{Audio: wav, Format: audio.FormatWAV}, nil
}
