package socket

import (
	"context"
	"errors"
	"net/url"

	"brandmatch_server/models"
	"brandmatch_server/services"

	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/zap"
)

const namespace = "/"

// Events emitted to a single connection
const (
	EventJoined = "joined"
	EventError  = "errorMessage"
)

// Authenticator validates the token a client connects with
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*services.Claims, error)
}

// MatchReader checks match participation
type MatchReader interface {
	GetMatch(ctx context.Context, matchID, userID string) (*models.Match, error)
}

// MessageSender stores and broadcasts a chat message
type MessageSender interface {
	SendMessage(ctx context.Context, matchID, senderID string, in services.SendMessageInput) (*models.Message, error)
}

type broadcaster interface {
	BroadcastToRoom(namespace, room, event string, args ...interface{}) bool
}

// session is the part of socketio.Conn the handlers use
type session interface {
	ID() string
	URL() url.URL
	Context() interface{}
	SetContext(ctx interface{})
	Join(room string)
	Emit(event string, v ...interface{})
}

// Hub owns the Socket.IO server and implements services.Notifier
type Hub struct {
	Server   *socketio.Server
	Auth     Authenticator
	Matches  MatchReader
	Messages MessageSender
	Logger   *zap.Logger

	rooms broadcaster
}

// JoinRequest is the payload of the join event
type JoinRequest struct {
	MatchID string `json:"matchId"`
}

// SendRequest is the payload of the sendMessage event
type SendRequest struct {
	MatchID string `json:"matchId"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

var errMissingToken = errors.New("missing token")

// NewHub initializes the Socket.IO server and registers the event handlers.
// Messages may be set after construction.
func NewHub(auth Authenticator, matches MatchReader, logger *zap.Logger) *Hub {
	server := socketio.NewServer(nil)
	h := &Hub{Server: server, Auth: auth, Matches: matches, Logger: logger, rooms: server}

	server.OnConnect(namespace, func(c socketio.Conn) error {
		return h.connect(c)
	})
	server.OnEvent(namespace, "join", func(c socketio.Conn, req JoinRequest) {
		h.join(c, req)
	})
	server.OnEvent(namespace, "sendMessage", func(c socketio.Conn, req SendRequest) {
		h.sendMessage(c, req)
	})
	server.OnError(namespace, func(c socketio.Conn, err error) {
		if c != nil {
			logger.Warn("socket error", zap.String("socketId", c.ID()), zap.Error(err))
			return
		}
		logger.Warn("socket error", zap.Error(err))
	})
	server.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		logger.Debug("socket disconnected", zap.String("socketId", c.ID()), zap.String("reason", reason))
	})
	return h
}

// connect authenticates the token query parameter and joins the user's room
func (h *Hub) connect(c session) error {
	u := c.URL()
	token := u.Query().Get("token")
	if token == "" {
		h.Logger.Info("socket rejected", zap.String("socketId", c.ID()), zap.Error(errMissingToken))
		return errMissingToken
	}
	claims, err := h.Auth.Authenticate(context.Background(), token)
	if err != nil {
		h.Logger.Info("socket rejected", zap.String("socketId", c.ID()), zap.Error(err))
		return err
	}

	c.SetContext(claims.UserID)
	c.Join(services.UserRoom(claims.UserID))
	h.Logger.Info("socket connected", zap.String("socketId", c.ID()), zap.String("userId", claims.UserID))
	return nil
}

func sessionUser(c session) string {
	userID, _ := c.Context().(string)
	return userID
}

// join adds the connection to a match room after a participant check
func (h *Hub) join(c session, req JoinRequest) {
	userID := sessionUser(c)
	if userID == "" || req.MatchID == "" {
		c.Emit(EventError, "invalid join request")
		return
	}
	if _, err := h.Matches.GetMatch(context.Background(), req.MatchID, userID); err != nil {
		h.Logger.Info("socket join denied", zap.String("userId", userID), zap.String("matchId", req.MatchID), zap.Error(err))
		c.Emit(EventError, "cannot join match")
		return
	}
	c.Join(services.MatchRoom(req.MatchID))
	c.Emit(EventJoined, req.MatchID)
	h.Logger.Debug("socket joined match", zap.String("userId", userID), zap.String("matchId", req.MatchID))
}

// sendMessage stores the message through the chat service, which broadcasts it
func (h *Hub) sendMessage(c session, req SendRequest) {
	userID := sessionUser(c)
	if userID == "" || h.Messages == nil {
		c.Emit(EventError, "not connected")
		return
	}
	_, err := h.Messages.SendMessage(context.Background(), req.MatchID, userID, services.SendMessageInput{
		Content: req.Content,
		Type:    req.Type,
	})
	if err != nil {
		h.Logger.Info("socket message rejected", zap.String("userId", userID), zap.String("matchId", req.MatchID), zap.Error(err))
		c.Emit(EventError, err.Error())
	}
}

// EmitToUser implements services.Notifier
func (h *Hub) EmitToUser(userID, event string, payload interface{}) {
	h.rooms.BroadcastToRoom(namespace, services.UserRoom(userID), event, payload)
}

// EmitToMatch implements services.Notifier
func (h *Hub) EmitToMatch(matchID, event string, payload interface{}) {
	h.rooms.BroadcastToRoom(namespace, services.MatchRoom(matchID), event, payload)
}

// Serve runs the Socket.IO event loop until Close
func (h *Hub) Serve() {
	if err := h.Server.Serve(); err != nil {
		h.Logger.Error("socket server stopped", zap.Error(err))
	}
}

// Close stops the Socket.IO server
func (h *Hub) Close() error {
	return h.Server.Close()
}
