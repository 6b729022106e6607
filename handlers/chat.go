package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// Replier answers one portal chat message
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

// ChatHandler handles HTTP requests for the mascot chat assistant
type ChatHandler struct {
	replier Replier
}

// NewChatHandler creates a new handler with the given replier
func NewChatHandler(replier Replier) *ChatHandler {
	return &ChatHandler{replier: replier}
}

// ChatRequest is the JSON request body for POST /chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the JSON response structure for POST /chat
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "message is required"})
		return
	}

	reply, err := h.replier.Reply(ctx, req.Message)
	if err != nil {
		log.Printf("chat: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "assistant is unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ChatResponse{Reply: reply})
}
