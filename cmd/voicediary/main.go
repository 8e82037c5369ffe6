package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ent0n29/voicediary/internal/brain"
	"github.com/ent0n29/voicediary/internal/config"
	"github.com/ent0n29/voicediary/internal/httpapi"
	"github.com/ent0n29/voicediary/internal/memory"
	"github.com/ent0n29/voicediary/internal/observability"
	"github.com/ent0n29/voicediary/internal/pipeline"
	"github.com/ent0n29/voicediary/internal/prompt"
	"github.com/ent0n29/voicediary/internal/voice"
)

func main() {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var (
		stt           voice.SpeechToText
		tts           voice.TextToSpeech
		resolvedVoice string
	)

	voiceMode := strings.ToLower(strings.TrimSpace(cfg.VoiceProvider))
	if voiceMode == "" {
		voiceMode = "auto"
	}

	tryHuggingFace := func() bool {
		if strings.TrimSpace(cfg.HuggingFaceAPIKey) == "" {
			return false
		}
		p := voice.NewHuggingFaceProvider(voice.HuggingFaceConfig{
			APIKey:       cfg.HuggingFaceAPIKey,
			BaseURL:      cfg.HFBaseURL,
			WhisperModel: cfg.WhisperModel,
			TTSModel:     cfg.TTSModel,
		})
		stt = p
		tts = p
		resolvedVoice = "huggingface"
		log.Printf("voice provider: huggingface (%s / %s)", cfg.WhisperModel, cfg.TTSModel)
		return true
	}

	switch voiceMode {
	case "huggingface":
		if !tryHuggingFace() {
			log.Fatalf("VOICE_PROVIDER=huggingface but HUGGINGFACE_API_KEY is not set")
		}
	case "mock":
		p := voice.NewMockProvider()
		stt = p
		tts = p
		resolvedVoice = "mock"
		log.Printf("voice provider: mock")
	case "auto":
		if tryHuggingFace() {
			break
		}
		p := voice.NewMockProvider()
		stt = p
		tts = p
		resolvedVoice = "mock"
		log.Printf("voice provider: mock (no huggingface key)")
	default:
		log.Fatalf("invalid VOICE_PROVIDER: %q (expected auto|huggingface|mock)", cfg.VoiceProvider)
	}

	llm, err := brain.New(brain.Config{
		Mode:        cfg.BrainProvider,
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		Temperature: float32(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
	})
	if err != nil {
		log.Fatalf("brain init failed: %v", err)
	}
	resolvedBrain := "mock"
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" && strings.ToLower(strings.TrimSpace(cfg.BrainProvider)) != "mock" {
		resolvedBrain = "openai"
	}
	log.Printf("brain provider: %s", resolvedBrain)

	store := memory.NewStore(cfg.MemoryTurns)
	limits := pipeline.Limits{
		MaxAudioBytes:  cfg.MaxAudioUploadBytes(),
		AllowedFormats: cfg.AllowedAudioFormats,
		MaxTTSChars:    cfg.MaxTTSTextChars,
		CallTimeout:    cfg.AdapterTimeout,
	}

	orchestrator := pipeline.NewOrchestrator(
		store,
		prompt.NewBuilder(cfg.MaxChatMessageChars),
		pipeline.NewASRAdapter(stt, limits),
		pipeline.NewChatAdapter(llm, limits),
		pipeline.NewTTSAdapter(tts, limits),
		metrics,
	)

	api := httpapi.New(cfg, orchestrator, metrics, httpapi.ProviderInfo{
		Voice: resolvedVoice,
		Brain: resolvedBrain,
	})
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	store.StartJanitor(runCtx, cfg.SessionTTL, time.Minute)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
