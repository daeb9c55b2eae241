package models

import "time"

type Message struct {
	MatchID   string    `dynamodbav:"matchId" json:"matchId"`   // ✅ Partition Key
	SortKey   string    `dynamodbav:"sortKey" json:"-"`         // ✅ Sort Key: "<timestamp>#<id>"
	ID        string    `dynamodbav:"id" json:"id"`
	SenderID  string    `dynamodbav:"senderId" json:"senderId"`
	Content   string    `dynamodbav:"content" json:"content"`
	Type      string    `dynamodbav:"type" json:"type"` // text | image | document
	Timestamp time.Time `dynamodbav:"timestamp" json:"timestamp"`
	Read      bool      `dynamodbav:"read" json:"read"`
}

// Conversation is an accepted match with its latest message and unread count
type Conversation struct {
	Match
	MatchedProfile *UserProfile `json:"matchedProfile,omitempty"`
	LastMessage    *Message     `json:"lastMessage"`
	UnreadCount    int          `json:"unreadCount"`
}

// MessagesTable is the DynamoDB table name for match messages
const MessagesTable = "Messages"
