package store

import (
	"context"
	"errors"

	"github.com/Felag1n/AudioBridge/internal/model"
)

var (
	ErrPersistence      = errors.New("message store unavailable")
	ErrEmptyContent     = errors.New("message content cannot be empty")
	ErrInvalidUserID    = errors.New("user id cannot be empty")
	ErrOperationTimeout = errors.New("store operation timeout exceeded")
)

// MessageStore is the durable persistence collaborator consumed by the
// delivery engine. Implementations provide their own internal consistency;
// the engine treats each call as atomic.
type MessageStore interface {
	// CreateMessage durably records a message with status sent and a
	// store-assigned id. A failure here is the delivery-failure path: the
	// engine must not contact the receiver and must tell the sender to
	// roll back.
	CreateMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error)

	// ListMessages returns every message between the two users, in
	// ascending CreatedAt order. The pair is unordered; (a,b) and (b,a)
	// name the same conversation. Unknown pairs yield an empty slice.
	ListMessages(ctx context.Context, userA, userB string) ([]model.Message, error)

	// MarkRead advances every sent/delivered message addressed to readerID
	// from otherID to read and returns the affected message ids.
	// Idempotent: a second identical call returns nothing.
	MarkRead(ctx context.Context, readerID, otherID string) ([]string, error)
}

// UserStore is the read-only projection of the main application's user
// table, used for roster snapshots.
type UserStore interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}
