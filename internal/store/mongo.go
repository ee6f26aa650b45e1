package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Felag1n/AudioBridge/internal/db"
	"github.com/Felag1n/AudioBridge/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

type mongoMessageStore struct {
	messages *db.Repository[model.Message]
	logger   *zap.Logger
}

// NewMongoMessageStore returns a MessageStore backed by the given
// messages collection repository.
func NewMongoMessageStore(messages *db.Repository[model.Message], logger *zap.Logger) MessageStore {
	return &mongoMessageStore{
		messages: messages,
		logger:   logger,
	}
}

func (s *mongoMessageStore) CreateMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	if senderID == "" || receiverID == "" {
		return model.Message{}, ErrInvalidUserID
	}
	if content == "" {
		return model.Message{}, ErrEmptyContent
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg := model.Message{
		ID:         primitive.NewObjectID(),
		Content:    content,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.StatusSent,
		CreatedAt:  time.Now().UTC(),
	}
	msg.MessageID = msg.ID.Hex()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return model.Message{}, err
			}
		}

		_, err := s.messages.Create(ctx, msg)
		if err == nil {
			s.logger.Info("message inserted",
				zap.String("message_id", msg.MessageID),
				zap.String("sender_id", senderID),
				zap.String("receiver_id", receiverID),
				zap.Int("attempt", attempt+1),
			)
			return msg, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}

		s.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	s.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("sender_id", senderID),
	)
	return model.Message{}, fmt.Errorf("%w: %v", ErrPersistence, lastErr)
}

func (s *mongoMessageStore) ListMessages(ctx context.Context, userA, userB string) ([]model.Message, error) {
	if userA == "" || userB == "" {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Or(
		bson.M{"sender_id": userA, "receiver_id": userB},
		bson.M{"sender_id": userB, "receiver_id": userA},
	).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		msgs, err := s.messages.FindSorted(ctx, filter, "created_at", false)
		if err == nil {
			if msgs == nil {
				msgs = []model.Message{}
			}
			s.logger.Debug("messages listed",
				zap.String("user_a", userA),
				zap.String("user_b", userB),
				zap.Int("count", len(msgs)),
			)
			return msgs, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, s.handleReadError(lastErr, userA, userB)
}

func (s *mongoMessageStore) MarkRead(ctx context.Context, readerID, otherID string) ([]string, error) {
	if readerID == "" || otherID == "" {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("receiver_id", readerID).
		Eq("sender_id", otherID).
		In("status", []string{model.StatusSent, model.StatusDelivered}).
		Build()

	// Collect ids first so the status broadcast knows which messages moved;
	// the window between find and update only risks re-marking, which the
	// forward-only status makes harmless.
	unread, err := s.messages.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mark read lookup failed: %w", err)
	}
	if len(unread) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(unread))
	for _, m := range unread {
		ids = append(ids, m.MessageID)
	}

	if _, err := s.messages.UpdateMany(ctx,
		db.NewFilter().In("message_id", ids).Build(),
		bson.M{"status": model.StatusRead},
	); err != nil {
		return nil, fmt.Errorf("mark read update failed: %w", err)
	}

	s.logger.Debug("messages marked read",
		zap.String("reader_id", readerID),
		zap.String("other_id", otherID),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}

func (s *mongoMessageStore) handleReadError(err error, userA, userB string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Error("read timeout",
			zap.String("user_a", userA),
			zap.String("user_b", userB),
		)
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}

	s.logger.Error("read failed",
		zap.Error(err),
		zap.String("user_a", userA),
		zap.String("user_b", userB),
	)
	return fmt.Errorf("list messages failed: %w", err)
}

type mongoUserStore struct {
	users  *db.Repository[model.User]
	logger *zap.Logger
}

// NewMongoUserStore returns a UserStore over the main application's users
// collection.
func NewMongoUserStore(users *db.Repository[model.User], logger *zap.Logger) UserStore {
	return &mongoUserStore{users: users, logger: logger}
}

func (s *mongoUserStore) ListUsers(ctx context.Context) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	users, err := s.users.FindSorted(ctx, db.NewFilter().Eq("is_active", true).Build(), "name", false)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	return users, nil
}

// -----------------------------------------------------------------------------
// Shared helpers
// -----------------------------------------------------------------------------

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
