package event

import (
	"encoding/json"

	"github.com/Felag1n/AudioBridge/internal/model"
)

// Client -> server events.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
	EventTyping      = "typing_status"
	EventMarkRead    = "mark_messages_read"
)

// Server -> client events.
const (
	EventUsers         = "users"
	EventChatHistory   = "chat_history"
	EventNewMessage    = "new_message"
	EventMessageStatus = "message_status"
	EventTypingStatus  = "typing_status"
	EventUserStatus    = "user_status"
	EventSendError     = "send_error"
)

// Envelope is the wire frame for every socket event. Payload stays raw
// until the dispatch switch knows which concrete type to decode.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload opens a conversation with a peer and requests its history.
type JoinPayload struct {
	ChatID string `json:"chatId"`
}

// SendMessagePayload carries one outgoing message. Ref is the sender's
// temporary id; the server echoes it back in the ack (and in send_error)
// so the client can reconcile its optimistic entry. It is never forwarded
// to the receiving peer.
type SendMessagePayload struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
	Ref     string `json:"ref"`
}

// TypingPayload is the typing indicator, both directions. Inbound ChatID
// names the peer being typed to; outbound it names the peer who is typing.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// MarkReadPayload marks every unread message from ChatID as read.
type MarkReadPayload struct {
	ChatID string `json:"chatId"`
}

// ChatHistoryPayload delivers a full conversation once, on join.
type ChatHistoryPayload struct {
	ChatID   string          `json:"chatId"`
	Messages []model.Message `json:"messages"`
}

// NewMessagePayload pushes one durable message. On the receiver's
// connection Ref is empty; on the sender's (the ack) it echoes the ref
// from the originating send_message.
type NewMessagePayload struct {
	ChatID  string        `json:"chatId"`
	Message model.Message `json:"message"`
	Ref     string        `json:"ref,omitempty"`
}

// MessageStatusPayload advances the status of one already-delivered message.
type MessageStatusPayload struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	Status    string `json:"status"`
}

// UserStatusPayload broadcasts a presence transition.
type UserStatusPayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// SendErrorPayload tells the sender a message could not be persisted so it
// can roll back the optimistic entry identified by Ref.
type SendErrorPayload struct {
	Ref   string             `json:"ref"`
	Error model.ErrorPayload `json:"error"`
}

// UsersPayload is the roster snapshot pushed right after connect.
type UsersPayload struct {
	Users []model.RosterEntry `json:"users"`
}

// New marshals payload into an Envelope. Marshalling our own payload
// structs cannot fail; an error here is a programming bug, so it is
// swallowed and the envelope goes out with an empty payload.
func New(name string, payload any) Envelope {
	raw, _ := json.Marshal(payload)
	return Envelope{Event: name, Payload: raw}
}
