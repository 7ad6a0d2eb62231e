package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"listing-chat/auth"
	"listing-chat/domain"
	apperrors "listing-chat/errors"
	"listing-chat/services"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

const maxSearchLimit = 100

type Handler struct {
	log     *slog.Logger
	service services.IConversationService
}

func NewHandler(log *slog.Logger, service services.IConversationService) *Handler {
	return &Handler{log: log, service: service}
}

type startConversationRequest struct {
	ListingID string `json:"listingId"`
	OwnerID   string `json:"ownerId"`
}

type conversationResponse struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listingId"`
	InquirerID string    `json:"inquirerId"`
	OwnerID    string    `json:"ownerId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type messagesResponse struct {
	Messages   []domain.MessagePayload `json:"messages"`
	NextCursor *string                 `json:"nextCursor,omitempty"`
}

type searchHitResponse struct {
	MessageID string    `json:"messageId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Score     float64   `json:"score"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartConversation answers 201 when the conversation is new, 200 when it already existed.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var body startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	conversation, created, err := h.service.Start(r.Context(), caller, body.ListingID, body.OwnerID)
	if err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.JSON(w, status, toConversationResponse(conversation))
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "missing identity")
		return
	}
	conversations, err := h.service.List(r.Context(), caller)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, lo.Map(conversations, func(c domain.Conversation, _ int) conversationResponse {
		return toConversationResponse(c)
	}))
}

// GetMessages returns the history oldest first. Pass nextCursor back as ?cursor= for the next page.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := h.service.History(r.Context(), caller, chi.URLParam(r, "id"), cursor)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, messagesResponse{
		Messages:   lo.Map(messages, func(m domain.Message, _ int) domain.MessagePayload { return domain.ToPayload(m) }),
		NextCursor: next,
	})
}

func (h *Handler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "missing identity")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.Error(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	hits, err := h.service.Search(r.Context(), caller, chi.URLParam(r, "id"), query, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, lo.Map(hits, func(hit domain.SearchHit, _ int) searchHitResponse {
		return searchHitResponse(hit)
	}))
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Debug("Unable to write response", "error", err)
	}
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidConversation):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrInquirerOnly), errors.Is(err, apperrors.ErrNotParticipant):
		h.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperrors.ErrConversationNotFound):
		h.Error(w, http.StatusNotFound, "conversation not found")
	default:
		h.log.Error("Request failed", "error", err)
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func toConversationResponse(c domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:         c.ID,
		ListingID:  c.ListingID,
		InquirerID: c.InquirerID,
		OwnerID:    c.OwnerID,
		CreatedAt:  c.CreatedAt,
	}
}
