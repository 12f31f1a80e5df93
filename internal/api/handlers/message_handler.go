package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/formpilot/formpilot/internal/models"
	"github.com/formpilot/formpilot/internal/realtime"
	"github.com/formpilot/formpilot/internal/store"
)

type MessageHandler struct {
	store store.Store
	hub   *realtime.Hub
}

func NewMessageHandler(st store.Store, hub *realtime.Hub) *MessageHandler {
	return &MessageHandler{store: st, hub: hub}
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(r); !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	messages, err := h.store.ListMessages(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		UserID:    uid,
		Sender:    strings.TrimSpace(req.Sender),
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if msg.Sender == "" {
		msg.Sender = uid
	}

	if err := h.store.CreateMessage(r.Context(), msg); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.hub.Broadcast(realtime.Event{Type: "message", Payload: msg})
	respondJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.store.DeleteMessage(r.Context(), id, uid); err != nil {
		respondError(w, http.StatusNotFound, "message not found")
		return
	}

	h.hub.Broadcast(realtime.Event{Type: "message.deleted", Payload: map[string]string{"id": id}})
	w.WriteHeader(http.StatusNoContent)
}

// Stream pushes hub events to the client as server-sent events until the
// client disconnects.
func (h *MessageHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(r); !ok {
		respondError(w, http.StatusUnauthorized, "user_id not found in context")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)
	log.Debug().Str("subscriber", id).Msg("sse stream opened")

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				log.Warn().Err(err).Str("event", ev.Type).Msg("encode sse event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
