// Package chatclient is the consuming side of the realtime chat protocol:
// a websocket client plus the session state it maintains. The state owns
// the optimistic-apply/rollback contract: an outgoing message is appended
// locally under a temporary id before any network round-trip, reconciled to
// its durable id on ack, and removed again if the server reports a failed
// send.
package chatclient

import (
	"strings"
	"sync"
	"time"

	"github.com/Felag1n/AudioBridge/internal/model"
	"github.com/google/uuid"
)

// TempIDPrefix marks locally-generated message ids. Temp ids exist only for
// optimistic bookkeeping on the sender; they go to the server as a ref and
// come back in the ack, but are never forwarded to the peer.
const TempIDPrefix = "temp-"

// IsTempID reports whether id is a locally-generated temporary id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// State is the session view: per-peer ordered message lists, per-peer
// typing flags and the roster. Safe for concurrent use.
type State struct {
	userID string

	mu       sync.RWMutex
	messages map[string][]model.Message
	typing   map[string]bool
	roster   []model.RosterEntry

	// pending maps an in-flight temp id to the peer whose list holds it,
	// so a send_error (which carries only the ref) can find the entry.
	pending map[string]string
}

func NewState(userID string) *State {
	return &State{
		userID:   userID,
		messages: make(map[string][]model.Message),
		typing:   make(map[string]bool),
		pending:  make(map[string]string),
	}
}

// AppendLocal performs the optimistic apply: it appends a message with a
// fresh temporary id and status sent to the peer's list and returns it.
// This must happen before the send goes anywhere near the network.
func (s *State) AppendLocal(peerID, content string) model.Message {
	msg := model.Message{
		MessageID:  TempIDPrefix + uuid.New().String(),
		Content:    content,
		SenderID:   s.userID,
		ReceiverID: peerID,
		Status:     model.StatusSent,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.messages[peerID] = append(s.messages[peerID], msg)
	s.pending[msg.MessageID] = peerID
	s.mu.Unlock()

	return msg
}

// ApplyAck reconciles the temp entry identified by ref with the durable
// message, replacing it in place so its position in the list is preserved.
// With an empty or unknown ref (a push from the peer, or an ack that raced
// a local rollback) the durable message is appended instead.
func (s *State) ApplyAck(ref, peerID string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref != "" {
		delete(s.pending, ref)
		list := s.messages[peerID]
		for i := range list {
			if list[i].MessageID == ref {
				list[i] = msg
				return
			}
		}
	}

	s.messages[peerID] = append(s.messages[peerID], msg)
}

// Rollback removes exactly the temp entry identified by ref. Other pending
// entries stay untouched. Returns the peer whose list was modified and
// whether an entry was actually removed.
func (s *State) Rollback(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	peerID, ok := s.pending[ref]
	if !ok {
		return "", false
	}
	delete(s.pending, ref)

	before := len(s.messages[peerID])
	s.messages[peerID] = filter(s.messages[peerID], func(m model.Message) bool {
		return m.MessageID != ref
	})
	return peerID, len(s.messages[peerID]) < before
}

// ApplyHistory replaces the peer's list with the fetched history.
// In-flight optimistic entries are re-appended behind it so a history
// refresh cannot make a pending send disappear.
func (s *State) ApplyHistory(peerID string, msgs []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inflight []model.Message
	for _, m := range s.messages[peerID] {
		if IsTempID(m.MessageID) {
			inflight = append(inflight, m)
		}
	}

	s.messages[peerID] = append(append([]model.Message{}, msgs...), inflight...)
}

// ApplyStatus advances one message's status. Regressions are ignored so
// the observed status sequence stays a subsequence of sent, delivered,
// read.
func (s *State) ApplyStatus(peerID, messageID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.messages[peerID]
	for i := range list {
		if list[i].MessageID == messageID {
			if model.StatusAdvances(list[i].Status, status) {
				list[i].Status = status
			}
			return
		}
	}
}

// ApplyTyping records the peer's typing flag, last-write-wins.
func (s *State) ApplyTyping(peerID string, isTyping bool) {
	s.mu.Lock()
	s.typing[peerID] = isTyping
	s.mu.Unlock()
}

// ApplyRoster replaces the roster snapshot.
func (s *State) ApplyRoster(users []model.RosterEntry) {
	s.mu.Lock()
	s.roster = users
	s.mu.Unlock()
}

// ApplyUserStatus flips one roster entry's online bit. A presence event
// for a user missing from the roster adds a stub entry; the next snapshot
// fills in the profile fields.
func (s *State) ApplyUserStatus(userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.roster {
		if s.roster[i].UserID == userID {
			s.roster[i].Online = online
			return
		}
	}

	entry := model.RosterEntry{Online: online}
	entry.UserID = userID
	s.roster = append(s.roster, entry)
}

// Messages returns a copy of the peer's ordered message list.
func (s *State) Messages(peerID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.messages[peerID]))
	copy(out, s.messages[peerID])
	return out
}

// Typing reports the peer's last known typing flag.
func (s *State) Typing(peerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing[peerID]
}

// Roster returns a copy of the current roster.
func (s *State) Roster() []model.RosterEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RosterEntry, len(s.roster))
	copy(out, s.roster)
	return out
}

func filter[T any](items []T, fn func(T) bool) []T {
	var result []T
	for _, v := range items {
		if fn(v) {
			result = append(result, v)
		}
	}
	return result
}
