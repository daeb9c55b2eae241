package services

// Socket event names
const (
	EventNewMessage   = "newMessage"
	EventMatchUpdated = "matchUpdated"
)

// Notifier pushes real-time events to connected clients
type Notifier interface {
	EmitToUser(userID, event string, payload interface{})
	EmitToMatch(matchID, event string, payload interface{})
}

// NoopNotifier drops every event
type NoopNotifier struct{}

func (NoopNotifier) EmitToUser(string, string, interface{})  {}
func (NoopNotifier) EmitToMatch(string, string, interface{}) {}

// UserRoom is the socket room every authenticated connection joins
func UserRoom(userID string) string {
	return "user:" + userID
}

// MatchRoom is the socket room for a match conversation
func MatchRoom(matchID string) string {
	return "match:" + matchID
}
