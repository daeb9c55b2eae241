package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"brandmatch_server/models"
	"brandmatch_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ChatController handles match messages and conversations
type ChatController struct {
	ChatService *services.ChatService
	Logger      *zap.Logger
}

// NewChatController initializes the chat controller
func NewChatController(service *services.ChatService, logger *zap.Logger) *ChatController {
	return &ChatController{ChatService: service, Logger: logger}
}

// HandleGetMessages handles GET /api/matches/{matchId}/messages?limit=&before=
func (c *ChatController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var before *time.Time
	if raw := q.Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			respondError(c.Logger, w, r, fmt.Errorf("%w: before must be an RFC 3339 timestamp", models.ErrInvalidInput))
			return
		}
		before = &t
	}

	messages, err := c.ChatService.ListMessages(r.Context(), mux.Vars(r)["matchId"], userID(r), limit, before)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, messages)
}

// HandleSendMessage handles POST /api/matches/{matchId}/messages
func (c *ChatController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in services.SendMessageInput
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	msg, err := c.ChatService.SendMessage(r.Context(), mux.Vars(r)["matchId"], userID(r), in)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, msg)
}

// HandleMarkMessagesAsRead handles POST /api/matches/{matchId}/read
func (c *ChatController) HandleMarkMessagesAsRead(w http.ResponseWriter, r *http.Request) {
	n, err := c.ChatService.MarkRead(r.Context(), mux.Vars(r)["matchId"], userID(r))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]int{"marked": n})
}

// HandleConversations handles GET /api/conversations
func (c *ChatController) HandleConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := c.ChatService.Conversations(r.Context(), userID(r))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, conversations)
}
