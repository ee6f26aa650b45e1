package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Felag1n/AudioBridge/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryMessageStore is an in-memory MessageStore for tests and local
// development (storage backend "memory"). A single mutex serializes every
// operation, so insertion order is completion order.
type MemoryMessageStore struct {
	mu       sync.Mutex
	messages []model.Message

	// failCreates forces CreateMessage to fail with ErrPersistence while
	// set; tests use it to exercise the rollback path.
	failCreates bool
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{}
}

// SetFailCreates toggles forced CreateMessage failures.
func (s *MemoryMessageStore) SetFailCreates(fail bool) {
	s.mu.Lock()
	s.failCreates = fail
	s.mu.Unlock()
}

func (s *MemoryMessageStore) CreateMessage(_ context.Context, senderID, receiverID, content string) (model.Message, error) {
	if senderID == "" || receiverID == "" {
		return model.Message{}, ErrInvalidUserID
	}
	if content == "" {
		return model.Message{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreates {
		return model.Message{}, ErrPersistence
	}

	id := primitive.NewObjectID()
	msg := model.Message{
		ID:         id,
		MessageID:  id.Hex(),
		Content:    content,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.StatusSent,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *MemoryMessageStore) ListMessages(_ context.Context, userA, userB string) ([]model.Message, error) {
	if userA == "" || userB == "" {
		return nil, ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Message{}
	for _, m := range s.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) ||
			(m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryMessageStore) MarkRead(_ context.Context, readerID, otherID string) ([]string, error) {
	if readerID == "" || otherID == "" {
		return nil, ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for i := range s.messages {
		m := &s.messages[i]
		if m.ReceiverID == readerID && m.SenderID == otherID &&
			model.StatusAdvances(m.Status, model.StatusRead) {
			m.Status = model.StatusRead
			ids = append(ids, m.MessageID)
		}
	}
	return ids, nil
}

// MemoryUserStore is a fixed-roster UserStore for tests and local
// development.
type MemoryUserStore struct {
	mu    sync.Mutex
	users []model.User
}

func NewMemoryUserStore(users ...model.User) *MemoryUserStore {
	return &MemoryUserStore{users: users}
}

func (s *MemoryUserStore) ListUsers(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, len(s.users))
	copy(out, s.users)
	return out, nil
}
