package pipeline

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/ent0n29/voicediary/internal/audio"
	"github.com/ent0n29/voicediary/internal/fault"
	"github.com/ent0n29/voicediary/internal/memory"
	"github.com/ent0n29/voicediary/internal/observability"
	"github.com/ent0n29/voicediary/internal/prompt"
	"github.com/ent0n29/voicediary/internal/voice"
)

// Orchestrator sequences adapter calls and memory updates per request. It
// owns the mapping from internal failures to reported error kinds; every
// error leaving this package is a *fault.Error.
type Orchestrator struct {
	store   *memory.Store
	builder *prompt.Builder
	asr     *ASRAdapter
	chat    *ChatAdapter
	tts     *TTSAdapter
	metrics *observability.Metrics
}

func NewOrchestrator(
	store *memory.Store,
	builder *prompt.Builder,
	asr *ASRAdapter,
	chat *ChatAdapter,
	tts *TTSAdapter,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		store:   store,
		builder: builder,
		asr:     asr,
		chat:    chat,
		tts:     tts,
		metrics: metrics,
	}
}

// Transcribe runs the ASR stage only. No memory interaction.
func (o *Orchestrator) Transcribe(ctx context.Context, data []byte, format audio.Format) (voice.Transcription, error) {
	start := time.Now()
	tr, err := o.asr.Transcribe(ctx, data, format)
	o.observe("asr", start, err)
	if err != nil {
		return voice.Transcription{}, o.normalize(err)
	}
	return tr, nil
}

// Chat runs one exchange for the session: read history, assemble the
// request, call the collaborator, and commit both turns. A failed exchange
// leaves history untouched; an abandoned one mutates nothing.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, message string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", fault.Validation("empty_session_id", "session id cannot be empty")
	}
	msg := strings.TrimSpace(message)

	var reply string
	start := time.Now()
	err := o.store.Exchange(ctx, sessionID, func(history []memory.Turn) ([]memory.Turn, error) {
		messages, err := o.builder.Build(history, msg)
		if err != nil {
			return nil, err
		}
		reply, err = o.chat.Reflect(ctx, messages)
		if err != nil {
			return nil, err
		}
		return []memory.Turn{
			memory.NewTurn(memory.RoleUser, msg),
			memory.NewTurn(memory.RoleAssistant, reply),
		}, nil
	})
	o.observe("chat", start, err)
	if o.metrics != nil {
		o.metrics.ActiveSessions.Set(float64(o.store.SessionCount()))
	}
	if err != nil {
		return "", o.normalize(err)
	}
	return reply, nil
}

// Synthesize runs the TTS stage only. No memory interaction.
func (o *Orchestrator) Synthesize(ctx context.Context, text string) (voice.Synthesis, error) {
	start := time.Now()
	syn, err := o.tts.Synthesize(ctx, text)
	o.observe("tts", start, err)
	if err != nil {
		return voice.Synthesis{}, o.normalize(err)
	}
	return syn, nil
}

// CycleResult carries whatever the journal pipeline completed before the
// first failing stage, so callers keep partial progress.
type CycleResult struct {
	Transcription string
	Reply         string
	Audio         []byte
	Format        audio.Format
}

// FullCycle chains transcribe, chat, and synthesize. The first failing
// stage halts the pipeline and its error is reported; outputs of completed
// stages are returned regardless.
func (o *Orchestrator) FullCycle(ctx context.Context, sessionID string, data []byte, format audio.Format) (CycleResult, error) {
	var res CycleResult

	tr, err := o.Transcribe(ctx, data, format)
	if err != nil {
		return res, err
	}
	res.Transcription = tr.Text

	reply, err := o.Chat(ctx, sessionID, tr.Text)
	if err != nil {
		return res, err
	}
	res.Reply = reply

	syn, err := o.Synthesize(ctx, reply)
	if err != nil {
		return res, err
	}
	res.Audio = syn.Audio
	res.Format = syn.Format
	return res, nil
}

func (o *Orchestrator) observe(stage string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.ObserveStage(stage, start, err)
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues(stage, fault.CodeOf(err)).Inc()
	}
}

// normalize guarantees the taxonomy: anything unclassified is a defect and
// reports as internal, logged with its full cause.
func (o *Orchestrator) normalize(err error) error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fault.Cancelled(err)
	}
	log.Printf("pipeline: unclassified error: %v", err)
	return fault.Internal(err)
}
