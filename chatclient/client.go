package chatclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Felag1n/AudioBridge/internal/event"
	"github.com/Felag1n/AudioBridge/internal/model"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SendTimeout bounds how long an optimistic entry may wait for a server
// response. The protocol itself defines no timeout; after this wait the
// entry is rolled back locally and reported as failed.
const SendTimeout = 30 * time.Second

// SendFailedFunc is notified when an optimistic send is rolled back, either
// because the server reported a persistence error or because SendTimeout
// elapsed without an ack. ref is the temporary id that was removed.
type SendFailedFunc func(peerID, ref string, reason error)

var errSendTimeout = fmt.Errorf("send timed out after %s", SendTimeout)

// Client is a connected chat session. All state mutations happen on the
// read loop goroutine plus the public send methods; State handles its own
// locking.
type Client struct {
	UserID string
	State  *State

	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	onSendFailed SendFailedFunc

	closeOnce sync.Once
	done      chan struct{}
}

// Options tunes a Dial. Zero value is usable.
type Options struct {
	// OnSendFailed receives rollback notifications. Optional.
	OnSendFailed SendFailedFunc
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Dial connects to the chat socket at rawURL (ws:// or wss://), presenting
// token in the handshake, and starts the read loop.
func Dial(rawURL, token, userID string, opts Options) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid socket url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("connect failed: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		UserID:       userID,
		State:        NewState(userID),
		conn:         conn,
		logger:       logger,
		timers:       make(map[string]*time.Timer),
		onSendFailed: opts.OnSendFailed,
		done:         make(chan struct{}),
	}

	go c.readLoop()
	return c, nil
}

// Send optimistically appends the message and ships it to the server. The
// returned message carries the temporary id the eventual ack or rollback
// will be keyed by.
func (c *Client) Send(peerID, content string) (model.Message, error) {
	// Optimistic apply first: the local view updates before any I/O.
	msg := c.State.AppendLocal(peerID, content)

	c.armSendTimer(peerID, msg.MessageID)

	err := c.write(event.New(event.EventSendMessage, event.SendMessagePayload{
		ChatID:  peerID,
		Content: content,
		Ref:     msg.MessageID,
	}))
	if err != nil {
		c.failSend(peerID, msg.MessageID, err)
		return model.Message{}, err
	}
	return msg, nil
}

// Join opens the conversation with peerID and requests its history.
func (c *Client) Join(peerID string) error {
	return c.write(event.New(event.EventJoin, event.JoinPayload{ChatID: peerID}))
}

// SetTyping signals the typing flag for the conversation with peerID.
// Callers are responsible for eventually sending false; the server never
// expires the flag on its own while the connection lives.
func (c *Client) SetTyping(peerID string, isTyping bool) error {
	return c.write(event.New(event.EventTyping, event.TypingPayload{
		ChatID:   peerID,
		IsTyping: isTyping,
	}))
}

// MarkRead marks every message from peerID as read.
func (c *Client) MarkRead(peerID string) error {
	return c.write(event.New(event.EventMarkRead, event.MarkReadPayload{ChatID: peerID}))
}

// Close tears down the connection and stops the read loop.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) write(ev event.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(ev)
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		var ev event.Envelope
		if err := c.conn.ReadJSON(&ev); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("chat socket read failed", zap.Error(err))
			}
			return
		}

		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev event.Envelope) {
	switch ev.Event {
	case event.EventUsers:
		var p event.UsersPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.logger.Warn("bad users payload", zap.Error(err))
			return
		}
		c.State.ApplyRoster(p.Users)

	case event.EventChatHistory:
		var p event.ChatHistoryPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.logger.Warn("bad chat_history payload", zap.Error(err))
			return
		}
		c.State.ApplyHistory(p.ChatID, p.Messages)

	case event.EventNewMessage:
		var p event.NewMessagePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.logger.Warn("bad new_message payload", zap.Error(err))
			return
		}
		if p.Ref != "" {
			c.disarmSendTimer(p.Ref)
		}
		c.State.ApplyAck(p.Ref, p.ChatID, p.Message)

	case event.EventMessageStatus:
		var p event.MessageStatusPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.logger.Warn("bad message_status payload", zap.Error(err))
			return
		}
		c.State.ApplyStatus(p.ChatID, p.MessageID, p.Status)

	case event.EventTypingStatus:
		var p event.TypingPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.logger.Warn("bad typing_status payload", zap.Error(err))
			return
		}
		c.State.ApplyTyping(p.ChatID, p.IsTyping)

	case event.EventUserStatus:
		var p event.UserStatusPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.logger.Warn("bad user_status payload", zap.Error(err))
			return
		}
		c.State.ApplyUserStatus(p.UserID, p.Online)

	case event.EventSendError:
		var p event.SendErrorPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.logger.Warn("bad send_error payload", zap.Error(err))
			return
		}
		c.disarmSendTimer(p.Ref)
		if peerID, ok := c.State.Rollback(p.Ref); ok && c.onSendFailed != nil {
			c.onSendFailed(peerID, p.Ref, fmt.Errorf("%s: %s", p.Error.Code, p.Error.Message))
		}

	default:
		c.logger.Warn("unknown server event", zap.String("event", ev.Event))
	}
}

func (c *Client) armSendTimer(peerID, ref string) {
	t := time.AfterFunc(SendTimeout, func() {
		c.failSend(peerID, ref, errSendTimeout)
	})

	c.timersMu.Lock()
	c.timers[ref] = t
	c.timersMu.Unlock()
}

func (c *Client) disarmSendTimer(ref string) {
	c.timersMu.Lock()
	if t, ok := c.timers[ref]; ok {
		t.Stop()
		delete(c.timers, ref)
	}
	c.timersMu.Unlock()
}

func (c *Client) failSend(peerID, ref string, reason error) {
	c.disarmSendTimer(ref)
	if _, ok := c.State.Rollback(ref); !ok {
		return
	}
	if c.onSendFailed != nil {
		c.onSendFailed(peerID, ref, reason)
	}
}
