package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"brandmatch_server/events"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxMessageLength       = 2000
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200

	// fixed width so lexical order is chronological order
	messageSortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ChatService stores and delivers messages between matched users
type ChatService struct {
	Dynamo   *DynamoService
	Matches  *MatchService
	Events   events.Publisher
	Notifier Notifier
	Logger   *zap.Logger
	Clock    func() time.Time
}

// SendMessageInput is the payload of SendMessage
type SendMessageInput struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

func (cs *ChatService) now() time.Time {
	if cs.Clock != nil {
		return cs.Clock()
	}
	return time.Now()
}

func messageSortKey(ts time.Time, id string) string {
	return ts.UTC().Format(messageSortKeyLayout) + "#" + id
}

// SendMessage stores a message on an accepted match and broadcasts it to the match room
func (cs *ChatService) SendMessage(ctx context.Context, matchID, senderID string, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", models.ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", models.ErrInvalidInput, maxMessageLength)
	}
	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !models.IsValidMessageType(msgType) {
		return nil, fmt.Errorf("%w: unknown message type %q", models.ErrInvalidInput, msgType)
	}

	match, err := cs.Matches.GetMatch(ctx, matchID, senderID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusAccepted {
		return nil, fmt.Errorf("match is %s: %w", match.Status, models.ErrConflict)
	}

	now := cs.now().UTC()
	msg := models.Message{
		MatchID:   matchID,
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
		Type:      msgType,
		Timestamp: now,
	}
	msg.SortKey = messageSortKey(now, msg.ID)

	if err := cs.Dynamo.PutItem(ctx, models.MessagesTable, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	cs.Notifier.EmitToMatch(matchID, EventNewMessage, msg)
	if err := cs.Events.Publish(ctx, models.SubjectMessageCreated, msg); err != nil {
		cs.Logger.Warn("failed to publish message event", zap.String("matchId", matchID), zap.Error(err))
	}

	cs.Logger.Info("message sent", zap.String("matchId", matchID), zap.String("messageId", msg.ID))
	return &msg, nil
}

// ListMessages returns a page of messages, newest first. A non-nil before
// restricts the page to messages sent strictly earlier.
func (cs *ChatService) ListMessages(ctx context.Context, matchID, userID string, limit int, before *time.Time) ([]models.Message, error) {
	if _, err := cs.Matches.GetMatch(ctx, matchID, userID); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultMessagePageSize
	case limit > maxMessagePageSize:
		limit = maxMessagePageSize
	}

	opts := QueryOptions{Limit: int32(limit), LatestFirst: true}
	if before != nil {
		opts.SortKeyCondition = "#sk < :sk"
		opts.Names = map[string]string{"#sk": "sortKey"}
		opts.Values = map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: before.UTC().Format(messageSortKeyLayout)},
		}
	}

	messages := []models.Message{}
	if err := cs.Dynamo.QueryItems(ctx, models.MessagesTable, "matchId", matchID, opts, &messages); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// MarkRead marks every message the counterpart sent as read and returns how many changed
func (cs *ChatService) MarkRead(ctx context.Context, matchID, userID string) (int, error) {
	if _, err := cs.Matches.GetMatch(ctx, matchID, userID); err != nil {
		return 0, err
	}

	messages, err := cs.allMessages(ctx, matchID)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, m := range messages {
		if m.Read || m.SenderID == userID {
			continue
		}
		key := CompositeKey("matchId", matchID, "sortKey", m.SortKey)
		if err := cs.Dynamo.UpdateFields(ctx, models.MessagesTable, key, map[string]interface{}{"read": true}, nil); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// Conversations lists accepted matches that have messages, most recent activity first
func (cs *ChatService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	matches, err := cs.Matches.userMatches(ctx, userID)
	if err != nil {
		return nil, err
	}

	var active []models.Match
	lastMessages := map[string]*models.Message{}
	unread := map[string]int{}
	for _, m := range matches {
		if m.Status != models.MatchStatusAccepted {
			continue
		}
		messages, err := cs.allMessages(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if len(messages) == 0 {
			continue
		}
		last := messages[len(messages)-1]
		lastMessages[m.ID] = &last
		for _, msg := range messages {
			if !msg.Read && msg.SenderID != userID {
				unread[m.ID]++
			}
		}
		active = append(active, m)
	}

	conversations := make([]models.Conversation, 0, len(active))
	for _, item := range cs.Matches.enrich(ctx, active, userID) {
		conversations = append(conversations, models.Conversation{
			Match:          item.Match,
			MatchedProfile: item.MatchedProfile,
			LastMessage:    lastMessages[item.ID],
			UnreadCount:    unread[item.ID],
		})
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.Timestamp.After(conversations[j].LastMessage.Timestamp)
	})
	return conversations, nil
}

// allMessages returns every message of the match in chronological order
func (cs *ChatService) allMessages(ctx context.Context, matchID string) ([]models.Message, error) {
	var messages []models.Message
	if err := cs.Dynamo.QueryItems(ctx, models.MessagesTable, "matchId", matchID, QueryOptions{}, &messages); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}
