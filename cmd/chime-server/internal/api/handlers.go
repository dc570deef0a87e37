// Package api provides HTTP handlers for the chime server REST API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mateteriya/chime"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	registrar      *chime.Registrar
	vapidPublicKey string
	clock          chime.Clock
	logger         chime.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	registrar *chime.Registrar,
	vapidPublicKey string,
	clock chime.Clock,
	logger chime.Logger,
) *Handler {
	return &Handler{
		registrar:      registrar,
		vapidPublicKey: vapidPublicKey,
		clock:          clock,
		logger:         logger,
	}
}

// SubscribeRequest represents a push subscription registration request.
// The endpoint and keys come straight from the browser's PushSubscription.
type SubscribeRequest struct {
	OwnerID  string `json:"ownerID"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleSubscribe handles POST /api/v1/subscriptions
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	subscription, err := h.registrar.Subscribe(r.Context(), chime.SubscribeRequest{
		OwnerID:  req.OwnerID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		var chimeErr *chime.Error
		if errors.As(err, &chimeErr) && chimeErr.Code == chime.ErrCodeValidation {
			h.respondError(w, http.StatusBadRequest, chimeErr.Message, chimeErr.Code)
			return
		}
		h.logger.Errorf("Failed to register subscription: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to register subscription", "SUBSCRIBE_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusCreated, subscription, "Subscription registered successfully")
}

// HandleUnsubscribe handles DELETE /api/v1/subscriptions/:ownerID
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	// Extract owner ID from path (simple parsing)
	// In production, use a router like gorilla/mux or chi
	pathParts := splitPath(r.URL.Path)
	if len(pathParts) < 4 || pathParts[3] == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid owner ID", "INVALID_ID")
		return
	}
	ownerID := pathParts[3]

	if err := h.registrar.Unsubscribe(r.Context(), ownerID); err != nil {
		h.logger.Errorf("Failed to unsubscribe: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to unsubscribe", "UNSUBSCRIBE_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, nil, "Unsubscribed successfully")
}

// HandleTime handles GET /api/v1/time
//
// Returns the server's reference instant so clients can correct local clock
// drift. Briefly cacheable: a few seconds of staleness is within the drift
// budget and keeps a midnight thundering herd off the handler.
func (h *Handler) HandleTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=5")
	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"now": h.clock.Now().UTC().Format(time.RFC3339Nano),
	}, "")
}

// HandleVapidKey handles GET /api/v1/vapid-key
//
// Clients pass the returned key as applicationServerKey when calling
// PushManager.subscribe.
func (h *Handler) HandleVapidKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"publicKey": h.vapidPublicKey,
	}, "")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "0.1.0",
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// splitPath splits a URL path into non-empty segments.
func splitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
