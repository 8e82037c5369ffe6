package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/voicediary/internal/audio"
	"github.com/ent0n29/voicediary/internal/config"
	"github.com/ent0n29/voicediary/internal/fault"
	"github.com/ent0n29/voicediary/internal/observability"
	"github.com/ent0n29/voicediary/internal/pipeline"
	"github.com/ent0n29/voicediary/internal/voice"
)

// formOverheadBytes is slack on top of the audio limit for multipart
// boundaries and the user_id field.
const formOverheadBytes = 1 << 20

const defaultUserID = "anonymous"

type Pipeline interface {
	Transcribe(ctx context.Context, data []byte, format audio.Format) (voice.Transcription, error)
	Chat(ctx context.Context, sessionID, message string) (string, error)
	Synthesize(ctx context.Context, text string) (voice.Synthesis, error)
	FullCycle(ctx context.Context, sessionID string, data []byte, format audio.Format) (pipeline.CycleResult, error)
}

// ProviderInfo names the active collaborator backends for the health report.
type ProviderInfo struct {
	Voice string
	Brain string
}

type Server struct {
	cfg       config.Config
	pipeline  Pipeline
	metrics   *observability.Metrics
	providers ProviderInfo
}

func New(cfg config.Config, pipe Pipeline, metrics *observability.Metrics, providers ProviderInfo) *Server {
	return &Server{
		cfg:       cfg,
		pipeline:  pipe,
		metrics:   metrics,
		providers: providers,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleInfo)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/v1/asr", s.handleASR)
	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/api/v1/tts", s.handleTTS)
	r.Post("/api/v1/journal", s.handleJournal)
	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/stats", s.handleStats)

	return r
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "voicediary",
		"endpoints": []string{
			"POST /api/v1/asr",
			"POST /api/v1/chat",
			"POST /api/v1/tts",
			"POST /api/v1/journal",
			"GET /api/v1/health",
		},
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"providers": map[string]string{
			"voice": s.providers.Voice,
			"brain": s.providers.Brain,
		},
		"memory_turns":        s.cfg.MemoryTurns,
		"max_audio_upload_mb": s.cfg.MaxAudioUploadMB,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	var snap observability.StageSnapshot
	if s.metrics != nil {
		snap = s.metrics.Window.Snapshot()
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleASR(w http.ResponseWriter, r *http.Request) {
	data, format, err := s.readUpload(w, r)
	if err != nil {
		s.observe("asr", err)
		respondFault(w, err)
		return
	}

	tr, err := s.pipeline.Transcribe(r.Context(), data, format)
	s.observe("asr", err)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asrResponse{
		Text:       tr.Text,
		Format:     string(tr.Format),
		DurationMS: tr.DurationMS,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.observe("chat", err)
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = defaultUserID
	}

	reply, err := s.pipeline.Chat(r.Context(), req.UserID, req.Message)
	s.observe("chat", err)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Response: reply})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.observe("tts", err)
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	syn, err := s.pipeline.Synthesize(r.Context(), req.Text)
	s.observe("tts", err)
	if err != nil {
		respondFault(w, err)
		return
	}
	w.Header().Set("Content-Type", syn.Format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(syn.Audio)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	data, format, err := s.readUpload(w, r)
	if err != nil {
		s.observe("journal", err)
		respondFault(w, err)
		return
	}
	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		userID = defaultUserID
	}

	res, err := s.pipeline.FullCycle(r.Context(), userID, data, format)
	s.observe("journal", err)
	if err != nil {
		// Completed stage outputs ride along with the error so the
		// client does not lose a successful transcription to a later
		// stage failure.
		respondJSON(w, fault.HTTPStatus(fault.KindOf(err)), journalErrorResponse{
			Error:         err.Error(),
			Code:          fault.CodeOf(err),
			Transcription: res.Transcription,
			Response:      res.Reply,
		})
		return
	}
	respondJSON(w, http.StatusOK, journalResponse{
		Transcription: res.Transcription,
		Response:      res.Reply,
		AudioBase64:   base64.StdEncoding.EncodeToString(res.Audio),
		Format:        string(res.Format),
	})
}

// readUpload extracts the multipart audio payload. The byte limit applies
// before buffering; a request over the limit never reaches a collaborator.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, audio.Format, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxAudioUploadBytes()+formOverheadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, "", fault.Validation("audio_too_large", "upload exceeds %d MB limit", s.cfg.MaxAudioUploadMB)
		}
		return nil, "", fault.Validation("missing_file", "multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			return nil, "", fault.Validation("audio_too_large", "upload exceeds %d MB limit", s.cfg.MaxAudioUploadMB)
		}
		return nil, "", fault.Internal(err)
	}

	format, ok := uploadFormat(header)
	if !ok {
		return nil, "", fault.Validation("unsupported_format", "cannot determine audio format from upload %q", header.Filename)
	}
	return data, format, nil
}

// uploadFormat prefers the part's declared content type and falls back to
// the filename extension, which is all some clients send.
func uploadFormat(header *multipart.FileHeader) (audio.Format, bool) {
	if f, ok := audio.FormatFromContentType(header.Header.Get("Content-Type")); ok {
		return f, true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	switch audio.Format(ext) {
	case audio.FormatWAV, audio.FormatMP3, audio.FormatM4A:
		return audio.Format(ext), true
	}
	return "", false
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (s *Server) observe(endpoint string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(fault.KindOf(err))
	}
	s.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type asrResponse struct {
	Text       string `json:"text"`
	Format     string `json:"format"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

type journalResponse struct {
	Transcription string `json:"transcription"`
	Response      string `json:"response"`
	AudioBase64   string `json:"audio_base64"`
	Format        string `json:"format"`
}

type journalErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	Transcription string `json:"transcription,omitempty"`
	Response      string `json:"response,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func respondFault(w http.ResponseWriter, err error) {
	respondError(w, fault.HTTPStatus(fault.KindOf(err)), fault.CodeOf(err), err.Error())
}
