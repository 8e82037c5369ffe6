package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/voicediary/internal/audio"
)

// Config contains all runtime settings for the voice diary gateway.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	MemoryTurns int
	SessionTTL  time.Duration

	MaxAudioUploadMB    int
	AllowedAudioFormats []audio.Format
	AdapterTimeout      time.Duration
	MaxChatMessageChars int
	MaxTTSTextChars     int

	VoiceProvider string
	BrainProvider string

	HuggingFaceAPIKey string
	HFBaseURL         string
	WhisperModel      string
	TTSModel          string

	OpenAIAPIKey   string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
}

// MaxAudioUploadBytes converts the configured MB limit to bytes.
func (c Config) MaxAudioUploadBytes() int64 {
	return int64(c.MaxAudioUploadMB) << 20
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "voicediary"),
		VoiceProvider:       envOrDefault("VOICE_PROVIDER", "auto"),
		BrainProvider:       envOrDefault("BRAIN_PROVIDER", "auto"),
		HuggingFaceAPIKey:   trimmedEnv("HUGGINGFACE_API_KEY"),
		HFBaseURL:           envOrDefault("HF_BASE_URL", "https://api-inference.huggingface.co"),
		WhisperModel:        envOrDefault("WHISPER_MODEL", "openai/whisper-large-v3"),
		TTSModel:            envOrDefault("TTS_MODEL", "facebook/mms-tts-eng"),
		OpenAIAPIKey:        trimmedEnv("OPENAI_API_KEY"),
		LLMModel:            envOrDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature:      0.7,
		LLMMaxTokens:        500,
		MemoryTurns:         5,
		SessionTTL:          0,
		MaxAudioUploadMB:    25,
		AdapterTimeout:      30 * time.Second,
		MaxChatMessageChars: 5000,
		MaxTTSTextChars:     2000,
		ShutdownTimeout:     15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.AdapterTimeout, err = durationFromEnv("ADAPTER_TIMEOUT", cfg.AdapterTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTurns, err = intFromEnv("CONVERSATION_MEMORY_TURNS", cfg.MemoryTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxAudioUploadMB, err = intFromEnv("MAX_AUDIO_UPLOAD_MB", cfg.MaxAudioUploadMB)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxChatMessageChars, err = intFromEnv("MAX_CHAT_MESSAGE_CHARS", cfg.MaxChatMessageChars)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTTSTextChars, err = intFromEnv("MAX_TTS_TEXT_CHARS", cfg.MaxTTSTextChars)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTemperature, err = floatFromEnv("LLM_TEMPERATURE", cfg.LLMTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowedAudioFormats, err = formatsFromEnv("ALLOWED_AUDIO_FORMATS")
	if err != nil {
		return Config{}, err
	}

	if cfg.MemoryTurns < 0 {
		return Config{}, fmt.Errorf("CONVERSATION_MEMORY_TURNS must be >= 0")
	}
	if cfg.MaxAudioUploadMB <= 0 {
		return Config{}, fmt.Errorf("MAX_AUDIO_UPLOAD_MB must be positive")
	}
	if cfg.MaxChatMessageChars <= 0 {
		return Config{}, fmt.Errorf("MAX_CHAT_MESSAGE_CHARS must be positive")
	}
	if cfg.MaxTTSTextChars <= 0 {
		return Config{}, fmt.Errorf("MAX_TTS_TEXT_CHARS must be positive")
	}
	if cfg.AdapterTimeout < time.Second {
		return Config{}, fmt.Errorf("ADAPTER_TIMEOUT must be at least 1s")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return Config{}, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	if cfg.LLMMaxTokens <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}

	return cfg, nil
}

func formatsFromEnv(key string) ([]audio.Format, error) {
	v := trimmedEnv(key)
	if v == "" {
		return []audio.Format{audio.FormatWAV, audio.FormatMP3, audio.FormatM4A}, nil
	}
	var out []audio.Format
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		switch audio.Format(part) {
		case audio.FormatWAV, audio.FormatMP3, audio.FormatM4A:
			out = append(out, audio.Format(part))
		default:
			return nil, fmt.Errorf("%s contains unknown format %q", key, part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s must name at least one format", key)
	}
	return out, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}
