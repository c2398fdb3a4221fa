package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"readinghub/internal/api"
	"readinghub/internal/config"
	"readinghub/internal/logging"
	"readinghub/internal/notes"
	"readinghub/internal/sharecard"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	noteSvc  *api.NoteService
	renderer *sharecard.Renderer

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		noteSvc:  api.NewNoteService(d.store),
		renderer: sharecard.NewRenderer(cfg),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/share/card", srv.handleShareCard)
	mux.HandleFunc("/api/ocr/pending", authMiddleware(token, srv.handlePending))
	mux.HandleFunc("/api/ocr/run", authMiddleware(token, srv.handleRun))
	mux.HandleFunc("/api/ocr/retry", authMiddleware(token, srv.handleRetry))
	mux.HandleFunc("/api/ocr/transcriptions", authMiddleware(token, srv.handleTranscriptionStatuses))
	mux.HandleFunc("/api/ocr/transcription", authMiddleware(token, srv.handleTranscription))
	mux.HandleFunc("/api/ocr/stats", authMiddleware(token, srv.handleUsageStats))
	mux.HandleFunc("/api/ocr/logs", authMiddleware(token, srv.handleLogs))
	mux.HandleFunc("/api/notes", authMiddleware(token, srv.handleNotes))
	mux.HandleFunc("/api/stats", authMiddleware(token, srv.handleSystemStats))
	mux.HandleFunc("/api/notify/test", authMiddleware(token, srv.handleTestNotification))

	srv.server = &http.Server{
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pending, err := s.daemon.CountPending(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.PendingResponse{Pending: pending})
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		MaxItems int `json:"max_items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.daemon.RunBatch(r.Context(), req.MaxItems)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBatchResult(result))
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		NoteIDs []string `json:"note_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.daemon.RetryFailed(r.Context(), req.NoteIDs...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBatchResult(result))
}

func (s *apiServer) handleTranscriptionStatuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	noteIDs := cleanValues(r.URL.Query()["note_id"])
	if len(noteIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "note_id required")
		return
	}
	statuses, err := s.daemon.store.TranscriptionStatuses(r.Context(), noteIDs)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := api.TranscriptionStatusesResponse{Statuses: make(map[string]string, len(statuses))}
	for id, status := range statuses {
		payload.Statuses[id] = string(status)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleTranscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	noteID := strings.TrimSpace(r.URL.Query().Get("note_id"))
	if noteID == "" {
		s.writeError(w, http.StatusBadRequest, "note_id required")
		return
	}
	tr, err := s.noteSvc.Transcription(r.Context(), noteID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tr == nil {
		s.writeError(w, http.StatusNotFound, "transcription not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.TranscriptionResponse{Transcription: *tr})
}

func (s *apiServer) handleUsageStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.daemon.store.UsageStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.UsageStatsResponse{Stats: api.FromUsageStats(stats)})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.daemon.store.RecentLogs(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogListResponse{Logs: api.FromLogEntries(entries)})
}

func (s *apiServer) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	filter := notes.NoteFilter{
		UserID: strings.TrimSpace(query.Get("user_id")),
		BookID: strings.TrimSpace(query.Get("book_id")),
	}
	if value := strings.TrimSpace(query.Get("type")); value != "" {
		noteType, ok := notes.ParseNoteType(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown note type %q", value))
			return
		}
		filter.Type = noteType
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	listed, err := s.noteSvc.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.NoteListResponse{Notes: listed})
}

func (s *apiServer) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.daemon.store.SystemStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSystemStats(stats))
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", message, err))
		return
	}
	s.writeJSON(w, http.StatusOK, api.TestNotificationResponse{Sent: sent, Message: message})
}

// handleShareCard serves a rendered PNG card for a public note. It is the
// one unauthenticated content endpoint, so private notes 404 here.
func (s *apiServer) handleShareCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	noteID := strings.TrimSpace(r.URL.Query().Get("note_id"))
	if noteID == "" {
		s.writeError(w, http.StatusBadRequest, "note_id required")
		return
	}
	note, err := s.daemon.store.GetNote(r.Context(), noteID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if note == nil || !note.IsPublic {
		s.writeError(w, http.StatusNotFound, "note not found")
		return
	}

	card := sharecard.Card{
		Quote:      note.Content,
		PageNumber: note.PageNumber,
	}
	if tr, err := s.daemon.store.TranscriptionByNote(r.Context(), noteID); err == nil && tr != nil {
		if tr.QuoteContent != "" {
			card.Quote = tr.QuoteContent
		} else if tr.ExtractedText != "" {
			card.Quote = tr.ExtractedText
		}
	}
	if note.BookID != "" {
		if book, err := s.daemon.store.GetBook(r.Context(), note.BookID); err == nil && book != nil {
			card.BookTitle = book.Title
			card.BookAuthor = book.Author
		}
	}
	if user, err := s.daemon.store.GetUser(r.Context(), note.UserID); err == nil && user != nil {
		card.UserName = user.Name
	}

	w.Header().Set("Content-Type", "image/png")
	if err := s.renderer.Render(w, card); err != nil {
		s.log().Error("share card render failed", logging.Error(err))
	}
}

func cleanValues(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
