package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message delivery statuses. A message only ever moves forward through
// sent -> delivered -> read, never back.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

var statusRank = map[string]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// StatusAdvances reports whether moving a message from -> next is a
// forward transition. Unknown statuses never advance.
func StatusAdvances(from, next string) bool {
	f, ok := statusRank[from]
	if !ok {
		return false
	}
	n, ok := statusRank[next]
	if !ok {
		return false
	}
	return n > f
}

// Message represents one direct message between two users. MessageID is
// assigned at persistence time; before that the sending client tracks the
// message under a temp-prefixed id that is never forwarded to the peer.
type Message struct {
	ID         primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	MessageID  string             `json:"id" bson:"message_id"`
	Content    string             `json:"content" bson:"content"`
	SenderID   string             `json:"senderId" bson:"sender_id"`
	ReceiverID string             `json:"receiverId" bson:"receiver_id"`
	Status     string             `json:"status" bson:"status"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
}

// ConversationWith returns the peer id from the perspective of userID.
func (m Message) ConversationWith(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// ErrorPayload represents an error response sent to a client over the socket.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
