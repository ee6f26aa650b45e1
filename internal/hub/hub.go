package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/Felag1n/AudioBridge/internal/event"
	"github.com/Felag1n/AudioBridge/internal/metrics"
	"github.com/Felag1n/AudioBridge/internal/model"
	"github.com/Felag1n/AudioBridge/internal/store"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub owns the connection registry and runs the delivery protocol. One
// authoritative connection per user id; a later connect for the same user
// supersedes the mapping (the stale connection is not force-closed, it just
// becomes unroutable and drains until its own disconnect).
type Hub struct {
	messages store.MessageStore
	users    store.UserStore
	logger   *zap.Logger

	// single mutual-exclusion domain for the registry; presence fanout
	// happens under the same lock so every connection observes presence
	// transitions in emission order.
	mu    sync.Mutex
	conns map[string]*Client

	upgrader websocket.Upgrader
}

func NewHub(messages store.MessageStore, users store.UserStore, allowedOrigins []string, logger *zap.Logger) *Hub {
	return &Hub{
		messages: messages,
		users:    users,
		logger:   logger,
		conns:    make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades the connection for an already-authenticated user and
// registers it. Auth happens before the upgrade; by the time we are here
// userID is trusted.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(userID, conn, h)
}

// register records c as the authoritative connection for its user and
// broadcasts the online transition to every registered connection,
// including c itself (multi-tab consistency).
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.conns[c.UserID] = c
	total := len(h.conns)
	h.broadcastLocked(event.New(event.EventUserStatus, event.UserStatusPayload{
		UserID: c.UserID,
		Online: true,
	}))
	h.mu.Unlock()

	metrics.OnlineConns.Set(float64(total))
	h.logger.Info("client registered",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.UserID),
	)
}

// unregister removes whatever mapping currently points at c. Disconnect
// events carry only the connection, so the lookup is by handle; when the
// mapping was already superseded by a newer connect this is a silent no-op
// and no offline transition is emitted.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.conns[c.UserID]
	removed := ok && current == c
	if removed {
		delete(h.conns, c.UserID)
		h.broadcastLocked(event.New(event.EventUserStatus, event.UserStatusPayload{
			UserID: c.UserID,
			Online: false,
		}))
	}
	total := len(h.conns)
	h.mu.Unlock()

	c.Close()
	if removed {
		metrics.OnlineConns.Set(float64(total))
		h.logger.Info("client unregistered",
			zap.String("client_id", c.ID),
			zap.String("user_id", c.UserID),
		)
	}
}

// resolve returns the current authoritative connection for a user, or nil
// when the user is offline.
func (h *Hub) resolve(userID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[userID]
}

// broadcastLocked enqueues ev on every registered connection. Caller holds
// h.mu, so enqueue must not block: a client whose egress is full misses the
// event rather than stalling the registry.
func (h *Hub) broadcastLocked(ev event.Envelope) {
	for _, c := range h.conns {
		if !c.trySend(ev) {
			h.logger.Warn("egress full, dropping broadcast",
				zap.String("client_id", c.ID),
				zap.String("event", ev.Event),
			)
		}
	}
}

// OnlineUsers returns the ids of every currently registered user.
func (h *Hub) OnlineUsers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.conns))
	for id := range h.conns {
		out = append(out, id)
	}
	return out
}

// IsOnline reports whether userID has a registered connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.resolve(userID) != nil
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Roster merges the user store with live presence.
func (h *Hub) Roster(ctx context.Context) ([]model.RosterEntry, error) {
	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]model.RosterEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, model.RosterEntry{
			User:   u,
			Online: h.IsOnline(u.UserID),
		})
	}
	return entries, nil
}

// Stop closes every registered connection.
func (h *Hub) Stop() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.conns))
	for _, c := range h.conns {
		clients = append(clients, c)
	}
	h.conns = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	metrics.OnlineConns.Set(0)
}

// -----------------------------------------------------------------
// Event dispatch
// -----------------------------------------------------------------

// handleEvent dispatches one inbound event. It runs on the connection's
// read goroutine, so a single sender's events are processed strictly in
// the order they arrived; a sender's persist calls therefore complete in
// call order. Errors never tear down the connection.
func (h *Hub) handleEvent(ev event.Envelope, c *Client) {
	switch ev.Event {
	case event.EventJoin:
		var p event.JoinPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.logger.Warn("bad join payload", zap.String("client_id", c.ID), zap.Error(err))
			return
		}
		h.handleJoin(c, p)
	case event.EventSendMessage:
		var p event.SendMessagePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.logger.Warn("bad send_message payload", zap.String("client_id", c.ID), zap.Error(err))
			return
		}
		h.handleSend(c, p)
	case event.EventTyping:
		var p event.TypingPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.logger.Warn("bad typing payload", zap.String("client_id", c.ID), zap.Error(err))
			return
		}
		h.handleTyping(c, p)
	case event.EventMarkRead:
		var p event.MarkReadPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.logger.Warn("bad mark_messages_read payload", zap.String("client_id", c.ID), zap.Error(err))
			return
		}
		h.handleMarkRead(c, p)
	default:
		h.logger.Warn("unknown event type",
			zap.String("event", ev.Event),
			zap.String("client_id", c.ID),
		)
	}
}

// handleJoin fetches the conversation history and delivers it once. A peer
// with no prior messages is a successful empty history, not an error.
func (h *Hub) handleJoin(c *Client, p event.JoinPayload) {
	if p.ChatID == "" {
		return
	}

	msgs, err := h.messages.ListMessages(c.ctx, c.UserID, p.ChatID)
	if err != nil {
		h.logger.Error("history fetch failed",
			zap.String("user_id", c.UserID),
			zap.String("chat_id", p.ChatID),
			zap.Error(err),
		)
		return
	}

	c.Send(event.New(event.EventChatHistory, event.ChatHistoryPayload{
		ChatID:   p.ChatID,
		Messages: msgs,
	}))
}

// Deliver persists one message and routes it to the receiver's live
// connection when online. The receiver's view keys the conversation by the
// sender's id; the sender's ref never travels this path. Shared by the
// socket send event and the REST create endpoint.
func (h *Hub) Deliver(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	msg, err := h.messages.CreateMessage(ctx, senderID, receiverID, content)
	if err != nil {
		metrics.MessagesFailed.Inc()
		return model.Message{}, err
	}
	metrics.MessagesPersisted.Inc()

	if peer := h.resolve(msg.ReceiverID); peer != nil {
		peer.Send(event.New(event.EventNewMessage, event.NewMessagePayload{
			ChatID:  msg.SenderID,
			Message: msg,
		}))
	} else {
		metrics.ReceiverOffline.Inc()
	}
	return msg, nil
}

// handleSend runs the persist -> route -> ack sequence. On persistence
// failure the sender gets a send_error carrying its ref so it can roll back
// the optimistic entry; the recipient is never contacted on that path.
func (h *Hub) handleSend(c *Client, p event.SendMessagePayload) {
	msg, err := h.Deliver(c.ctx, c.UserID, p.ChatID, p.Content)
	if err != nil {
		h.logger.Error("message persist failed",
			zap.String("sender_id", c.UserID),
			zap.String("receiver_id", p.ChatID),
			zap.Error(err),
		)
		c.Send(event.New(event.EventSendError, event.SendErrorPayload{
			Ref: p.Ref,
			Error: model.ErrorPayload{
				Code:    "persistence_error",
				Message: "failed to send message",
			},
		}))
		return
	}

	// Ack the sender, echoing the ref for reconciliation.
	c.Send(event.New(event.EventNewMessage, event.NewMessagePayload{
		ChatID:  msg.ReceiverID,
		Message: msg,
		Ref:     p.Ref,
	}))
}

// handleTyping relays the indicator to the peer's live connection; dropped
// silently when the peer is offline. No queuing, no ack.
func (h *Hub) handleTyping(c *Client, p event.TypingPayload) {
	peer := h.resolve(p.ChatID)
	if peer == nil {
		return
	}

	peer.Send(event.New(event.EventTypingStatus, event.TypingPayload{
		ChatID:   c.UserID,
		IsTyping: p.IsTyping,
	}))
	metrics.TypingRelayed.Inc()
}

func (h *Hub) handleMarkRead(c *Client, p event.MarkReadPayload) {
	if _, err := h.MarkRead(c.ctx, c.UserID, p.ChatID); err != nil {
		h.logger.Error("mark read failed",
			zap.String("reader_id", c.UserID),
			zap.String("other_id", p.ChatID),
			zap.Error(err),
		)
	}
}

// MarkRead advances unread messages from otherID to readerID and pushes a
// message_status update per affected id to the original sender's live
// connection. Offline senders pick the new status up from their next
// history fetch. Shared by the socket path and the REST endpoint.
func (h *Hub) MarkRead(ctx context.Context, readerID, otherID string) ([]string, error) {
	ids, err := h.messages.MarkRead(ctx, readerID, otherID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	metrics.ReadReceipts.Add(float64(len(ids)))

	if sender := h.resolve(otherID); sender != nil {
		for _, id := range ids {
			sender.Send(event.New(event.EventMessageStatus, event.MessageStatusPayload{
				MessageID: id,
				ChatID:    readerID,
				Status:    model.StatusRead,
			}))
		}
	}
	return ids, nil
}

// pushRoster sends the users snapshot to a freshly connected client.
func (h *Hub) pushRoster(c *Client) {
	entries, err := h.Roster(c.ctx)
	if err != nil {
		h.logger.Error("roster fetch failed", zap.String("user_id", c.UserID), zap.Error(err))
		return
	}

	c.Send(event.New(event.EventUsers, event.UsersPayload{Users: entries}))
}
