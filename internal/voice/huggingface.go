package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ent0n29/voicediary/internal/audio"
	"github.com/ent0n29/voicediary/internal/fault"
)

// HuggingFaceConfig controls the Inference API provider.
type HuggingFaceConfig struct {
	APIKey       string
	BaseURL      string
	WhisperModel string
	TTSModel     string
}

// HuggingFaceProvider implements SpeechToText and TextToSpeech against the
// Hugging Face Inference API. Deadlines come from the caller's context; the
// provider itself never retries.
type HuggingFaceProvider struct {
	cfg    HuggingFaceConfig
	client *http.Client
}

func NewHuggingFaceProvider(cfg HuggingFaceConfig) *HuggingFaceProvider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	if strings.TrimSpace(cfg.WhisperModel) == "" {
		cfg.WhisperModel = "openai/whisper-large-v3"
	}
	if strings.TrimSpace(cfg.TTSModel) == "" {
		cfg.TTSModel = "facebook/mms-tts-eng"
	}
	return &HuggingFaceProvider{cfg: cfg, client: &http.Client{}}
}

func (p *HuggingFaceProvider) Transcribe(ctx context.Context, data []byte, format audio.Format) (Transcription, error) {
	res, err := p.post(ctx, p.cfg.WhisperModel, format.ContentType(), bytes.NewReader(data))
	if err != nil {
		return Transcription{}, err
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return Transcription{}, err
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Transcription{}, fault.Upstream("bad_asr_response", fmt.Errorf("decode transcription: %w", err))
	}

	// An empty transcription is a valid result (silence in, nothing out).
	return Transcription{
		Text:      strings.TrimSpace(payload.Text),
		Format:    format,
		SizeBytes: len(data),
	}, nil
}

func (p *HuggingFaceProvider) Synthesize(ctx context.Context, text string) (Synthesis, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return Synthesis{}, fault.Internal(fmt.Errorf("marshal tts request: %w", err))
	}

	res, err := p.post(ctx, p.cfg.TTSModel, "application/json", bytes.NewReader(body))
	if err != nil {
		return Synthesis{}, err
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return Synthesis{}, err
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Synthesis{}, fault.Upstream("bad_tts_response", fmt.Errorf("read audio: %w", err))
	}
	if len(raw) == 0 {
		return Synthesis{}, fault.Upstream("empty_tts_audio", fmt.Errorf("provider returned no audio"))
	}
	return Synthesis{Audio: raw, Format: audio.FormatWAV}, nil
}

func (p *HuggingFaceProvider) post(ctx context.Context, model, contentType string, body io.Reader) (*http.Response, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/models/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fault.Internal(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	res, err := p.client.Do(req)
	if err != nil {
		// Transport errors keep their context cause so the adapter can
		// classify timeout vs cancellation.
		return nil, err
	}
	return res, nil
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	detail := strings.TrimSpace(string(snippet))

	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(snippet, &apiErr) == nil && apiErr.Error != "" {
		detail = apiErr.Error
	}
	if detail == "" {
		detail = res.Status
	}
	return fault.UpstreamStatus(res.StatusCode, detail)
}
