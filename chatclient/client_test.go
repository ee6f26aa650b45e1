package chatclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Felag1n/AudioBridge/internal/auth"
	"github.com/Felag1n/AudioBridge/internal/hub"
	"github.com/Felag1n/AudioBridge/internal/model"
	"github.com/Felag1n/AudioBridge/internal/store"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type testServer struct {
	srv      *httptest.Server
	hub      *hub.Hub
	messages *store.MemoryMessageStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	messages := store.NewMemoryMessageStore()
	alice := model.User{UserID: "1", Name: "Alice"}
	bob := model.User{UserID: "2", Name: "Bob"}
	users := store.NewMemoryUserStore(alice, bob)

	h := hub.NewHub(messages, users, nil, zap.NewNop())
	verifier := auth.NewVerifier(testSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID, err := verifier.Verify(auth.ExtractToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeWS(w, r, userID)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		h.Stop()
		srv.Close()
	})

	return &testServer{srv: srv, hub: h, messages: messages}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
}

func dialUser(t *testing.T, ts *testServer, userID string, opts Options) *Client {
	t.Helper()

	token, err := auth.GenerateToken(userID, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	c, err := Dial(ts.wsURL(), token, userID, opts)
	if err != nil {
		t.Fatalf("Dial as user %s: %v", userID, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDialRejectsBadToken(t *testing.T) {
	ts := newTestServer(t)

	if _, err := Dial(ts.wsURL(), "not-a-token", "1", Options{}); err == nil {
		t.Fatalf("Dial with a bad token succeeded")
	}
	if ts.hub.ConnectionCount() != 0 {
		t.Fatalf("rejected handshake mutated the registry")
	}
}

func TestSendDeliveryAndReconciliation(t *testing.T) {
	ts := newTestServer(t)
	alice := dialUser(t, ts, "1", Options{})
	bob := dialUser(t, ts, "2", Options{})

	sent, err := alice.Send("2", "hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !IsTempID(sent.MessageID) {
		t.Fatalf("optimistic id %q is not temp-prefixed", sent.MessageID)
	}

	waitFor(t, "bob to receive the message", func() bool {
		msgs := bob.State.Messages("1")
		return len(msgs) == 1 && msgs[0].Content == "hi"
	})
	if got := bob.State.Messages("1")[0]; got.Status != model.StatusSent || IsTempID(got.MessageID) {
		t.Fatalf("delivered message: %+v", got)
	}

	waitFor(t, "alice's ack to reconcile the temp id", func() bool {
		msgs := alice.State.Messages("2")
		return len(msgs) == 1 && !IsTempID(msgs[0].MessageID)
	})
}

func TestSendFailureRollsBackOptimisticEntry(t *testing.T) {
	ts := newTestServer(t)

	failures := make(chan string, 1)
	alice := dialUser(t, ts, "1", Options{
		OnSendFailed: func(peerID, ref string, reason error) {
			failures <- ref
		},
	})
	bob := dialUser(t, ts, "2", Options{})

	ts.messages.SetFailCreates(true)
	sent, err := alice.Send("2", "doomed")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case ref := <-failures:
		if ref != sent.MessageID {
			t.Fatalf("rollback ref %q, want %q", ref, sent.MessageID)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("send failure never reported")
	}

	if got := alice.State.Messages("2"); len(got) != 0 {
		t.Fatalf("optimistic entry survived rollback: %+v", got)
	}
	if got := bob.State.Messages("1"); len(got) != 0 {
		t.Fatalf("receiver saw a failed send: %+v", got)
	}
}

func TestJoinDeliversHistory(t *testing.T) {
	ts := newTestServer(t)
	alice := dialUser(t, ts, "1", Options{})

	if _, err := alice.Send("2", "offline one"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, "alice's send to be acked", func() bool {
		msgs := alice.State.Messages("2")
		return len(msgs) == 1 && !IsTempID(msgs[0].MessageID)
	})

	bob := dialUser(t, ts, "2", Options{})
	if err := bob.Join("1"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	waitFor(t, "bob's history", func() bool {
		msgs := bob.State.Messages("1")
		return len(msgs) == 1 && msgs[0].Content == "offline one"
	})
}

func TestMarkReadPropagatesToSender(t *testing.T) {
	ts := newTestServer(t)
	alice := dialUser(t, ts, "1", Options{})
	bob := dialUser(t, ts, "2", Options{})

	if _, err := alice.Send("2", "read me"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, "bob to receive the message", func() bool {
		return len(bob.State.Messages("1")) == 1
	})

	if err := bob.MarkRead("1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	waitFor(t, "alice to observe the read receipt", func() bool {
		msgs := alice.State.Messages("2")
		return len(msgs) == 1 && msgs[0].Status == model.StatusRead
	})
}

func TestTypingIndicatorRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	alice := dialUser(t, ts, "1", Options{})
	bob := dialUser(t, ts, "2", Options{})

	if err := alice.SetTyping("2", true); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}
	waitFor(t, "bob to see typing on", func() bool {
		return bob.State.Typing("1")
	})

	if err := alice.SetTyping("2", false); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}
	waitFor(t, "bob to see typing off", func() bool {
		return !bob.State.Typing("1")
	})
}

func TestPresenceVisibleInRoster(t *testing.T) {
	ts := newTestServer(t)
	alice := dialUser(t, ts, "1", Options{})

	waitFor(t, "alice's roster snapshot", func() bool {
		return len(alice.State.Roster()) == 2
	})

	bob := dialUser(t, ts, "2", Options{})
	waitFor(t, "bob online in alice's roster", func() bool {
		for _, e := range alice.State.Roster() {
			if e.UserID == "2" && e.Online {
				return true
			}
		}
		return false
	})

	bob.Close()
	waitFor(t, "bob offline in alice's roster", func() bool {
		for _, e := range alice.State.Roster() {
			if e.UserID == "2" {
				return !e.Online
			}
		}
		return false
	})
}
