package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PabloGalante/solace-api/internal/app/conversation"
	"github.com/PabloGalante/solace-api/internal/app/journal"
	"github.com/PabloGalante/solace-api/internal/domain"
	"github.com/PabloGalante/solace-api/internal/observability"
)

type Server struct {
	chats   *conversation.Manager
	journal *journal.Service
}

func NewServer(chats *conversation.Manager, journalSvc *journal.Service) http.Handler {
	s := &Server{chats: chats, journal: journalSvc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// chat
	r.Post("/start_chat/", s.handleStartChat)
	r.Post("/send_message/", s.handleSendMessage)
	r.Post("/get_single_response/", s.handleSingleResponse)
	r.Post("/end_chat/", s.handleEndChat)

	// journal
	r.Post("/get_correlations/", s.handleCorrelations)
	r.Post("/add_user/", s.handleAddUser)
	r.Post("/update_user_data/", s.handleAddUser)
	r.Post("/add_entries/", s.handleAddEntries)
	r.Get("/check_user_data/{user_id}", s.handleCheckUser)

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type startChatRequest struct {
	UserID string `json:"user_id"`
}

type startChatResponse struct {
	SessionID string `json:"session_id"`
}

type sendMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
}

type singleResponseRequest struct {
	Message string `json:"message"`
}

type replyResponse struct {
	Response string `json:"response"`
}

type endChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type correlationsRequest struct {
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type addUserRequest struct {
	UserID   string             `json:"user_id"`
	UserData *domain.UserRecord `json:"user_data"`
	// Data is the field name older clients send to /update_user_data/.
	Data *domain.UserRecord `json:"data,omitempty"`
}

type addEntriesRequest struct {
	UserID         string                `json:"user_id"`
	JournalEntries []domain.JournalEntry `json:"journal_entries"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ─────────────────────────────────────────────
// Chat handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartChat(w http.ResponseWriter, r *http.Request) {
	var req startChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := s.chats.StartChat(r.Context(), domain.UserID(req.UserID))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, startChatResponse{SessionID: string(id)})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.SessionID == "" {
		badRequest(w, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	reply, err := s.chats.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: domain.SessionID(req.SessionID),
		UserID:    domain.UserID(req.UserID),
		Text:      req.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{Response: reply})
}

func (s *Server) handleSingleResponse(w http.ResponseWriter, r *http.Request) {
	var req singleResponseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	reply, err := s.chats.GetSingleResponse(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{Response: reply})
}

func (s *Server) handleEndChat(w http.ResponseWriter, r *http.Request) {
	var req endChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.SessionID == "" {
		badRequest(w, "session_id is required")
		return
	}

	err := s.chats.EndChat(r.Context(), conversation.EndChatInput{
		SessionID: domain.SessionID(req.SessionID),
		UserID:    domain.UserID(req.UserID),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Chat session ended"})
}

// ─────────────────────────────────────────────
// Journal handlers
// ─────────────────────────────────────────────

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	var req correlationsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text, err := s.journal.GetCorrelations(r.Context(), domain.UserID(req.UserID), req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}

	// The body is the model text encoded as a JSON string.
	writeJSON(w, http.StatusOK, text)
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec := req.UserData
	if rec == nil {
		rec = req.Data
	}

	if err := s.journal.AddUser(r.Context(), domain.UserID(req.UserID), rec); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User data updated successfully"})
}

func (s *Server) handleAddEntries(w http.ResponseWriter, r *http.Request) {
	var req addEntriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := s.journal.AddEntries(r.Context(), domain.UserID(req.UserID), req.JournalEntries)
	if err != nil {
		writeError(w, err)
		return
	}

	msg := "Journal entries added successfully"
	if n == 1 {
		msg = "Journal entry added successfully"
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	rec, err := s.journal.GetUser(r.Context(), domain.UserID(userID))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps the domain error kinds onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		observability.Logger().Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:  "internal server error",
			Detail: err.Error(),
		})
	}
}
