package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Felag1n/AudioBridge/internal/model"
)

func TestCreateAndListAscending(t *testing.T) {
	s := NewMemoryMessageStore()
	ctx := context.Background()

	contents := []string{"a", "b", "c"}
	for _, content := range contents {
		msg, err := s.CreateMessage(ctx, "1", "2", content)
		if err != nil {
			t.Fatalf("CreateMessage(%q): %v", content, err)
		}
		if msg.MessageID == "" {
			t.Fatalf("durable id not assigned")
		}
		if msg.Status != model.StatusSent {
			t.Fatalf("new message status %q, want sent", msg.Status)
		}
	}

	msgs, err := s.ListMessages(ctx, "1", "2")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.Content != contents[i] {
			t.Fatalf("position %d: got %q, want %q", i, m.Content, contents[i])
		}
		if i > 0 && m.CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("createdAt not ascending at %d", i)
		}
	}
}

func TestListMessagesPairIsUnordered(t *testing.T) {
	s := NewMemoryMessageStore()
	ctx := context.Background()

	if _, err := s.CreateMessage(ctx, "1", "2", "from 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateMessage(ctx, "2", "1", "from 2"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateMessage(ctx, "1", "3", "other conversation"); err != nil {
		t.Fatal(err)
	}

	forward, err := s.ListMessages(ctx, "1", "2")
	if err != nil {
		t.Fatal(err)
	}
	reverse, err := s.ListMessages(ctx, "2", "1")
	if err != nil {
		t.Fatal(err)
	}

	if len(forward) != 2 || len(reverse) != 2 {
		t.Fatalf("got %d/%d messages, want 2/2", len(forward), len(reverse))
	}
	for i := range forward {
		if forward[i].MessageID != reverse[i].MessageID {
			t.Fatalf("pair order asymmetric at %d", i)
		}
	}
}

func TestListMessagesUnknownPairIsEmpty(t *testing.T) {
	s := NewMemoryMessageStore()

	msgs, err := s.ListMessages(context.Background(), "1", "2")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
}

func TestMarkReadAdvancesAndIsIdempotent(t *testing.T) {
	s := NewMemoryMessageStore()
	ctx := context.Background()

	if _, err := s.CreateMessage(ctx, "2", "1", "unread one"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateMessage(ctx, "2", "1", "unread two"); err != nil {
		t.Fatal(err)
	}
	// A message in the other direction must not be touched.
	if _, err := s.CreateMessage(ctx, "1", "2", "mine"); err != nil {
		t.Fatal(err)
	}

	ids, err := s.MarkRead(ctx, "1", "2")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d affected ids, want 2", len(ids))
	}

	msgs, err := s.ListMessages(ctx, "1", "2")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range msgs {
		if m.ReceiverID == "1" && m.Status != model.StatusRead {
			t.Fatalf("message %s still %q", m.MessageID, m.Status)
		}
		if m.SenderID == "1" && m.Status != model.StatusSent {
			t.Fatalf("outbound message mutated: %q", m.Status)
		}
	}

	ids, err = s.MarkRead(ctx, "1", "2")
	if err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("second MarkRead affected %d ids, want 0", len(ids))
	}
}

func TestCreateMessageValidation(t *testing.T) {
	s := NewMemoryMessageStore()
	ctx := context.Background()

	if _, err := s.CreateMessage(ctx, "", "2", "x"); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("empty sender: got %v, want ErrInvalidUserID", err)
	}
	if _, err := s.CreateMessage(ctx, "1", "2", ""); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("empty content: got %v, want ErrEmptyContent", err)
	}
}

func TestFailCreatesSurfacesPersistenceError(t *testing.T) {
	s := NewMemoryMessageStore()
	s.SetFailCreates(true)

	_, err := s.CreateMessage(context.Background(), "1", "2", "x")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}

	msgs, _ := s.ListMessages(context.Background(), "1", "2")
	if len(msgs) != 0 {
		t.Fatalf("failed create left %d messages behind", len(msgs))
	}
}
