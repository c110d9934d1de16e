package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/auth"
)

func dialHub(t *testing.T, hub *ApprovalHub, agentID string) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := &auth.Claims{UserID: agentID, Role: domain.RoleAgent}
		hub.ServeHTTP(w, withClaims(r, claims))
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestApprovalHubDeliversDecision(t *testing.T) {
	hub := NewApprovalHub(nil, nil)
	conn, cleanup := dialHub(t, hub, "agent-1")
	defer cleanup()

	// Wait until the subscription is registered before notifying.
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		_, subscribed := hub.subscribers["agent-1"]
		hub.mu.RUnlock()
		if subscribed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.NotifyApproval("agent-1", true)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event ApprovalEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if event.Type != "agent_approval" {
		t.Errorf("expected agent_approval type, got %q", event.Type)
	}
	if !event.Approved {
		t.Error("expected approved event")
	}
	if event.Redirect != "/agent-dashboard" {
		t.Errorf("expected /agent-dashboard redirect, got %q", event.Redirect)
	}
}

func TestApprovalHubRejectionRedirectsHome(t *testing.T) {
	event := ApprovalEvent{}

	hub := NewApprovalHub(nil, nil)
	ch := hub.subscribe("agent-2")
	defer hub.unsubscribe("agent-2", ch)

	hub.NotifyApproval("agent-2", false)
	select {
	case event = <-ch:
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	if event.Approved {
		t.Error("expected rejection event")
	}
	if event.Redirect != "/" {
		t.Errorf("expected home redirect, got %q", event.Redirect)
	}
}

func TestApprovalHubIgnoresUnknownAgent(t *testing.T) {
	hub := NewApprovalHub(nil, nil)
	// Must not panic or block with no subscriber present.
	hub.NotifyApproval("nobody", true)
}

func TestApprovalHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewApprovalHub(nil, nil)
	ch := hub.subscribe("agent-3")
	defer hub.unsubscribe("agent-3", ch)

	// Fill the buffer, then notify again; the second event is dropped
	// rather than blocking the admin action.
	hub.NotifyApproval("agent-3", true)
	done := make(chan struct{})
	go func() {
		hub.NotifyApproval("agent-3", true)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyApproval blocked on a full subscriber")
	}

	if len(ch) != 1 {
		t.Errorf("expected exactly one buffered event, got %d", len(ch))
	}
}

func TestApprovalHubReconnectKeepsNewSubscription(t *testing.T) {
	hub := NewApprovalHub(nil, nil)

	old := hub.subscribe("agent-4")
	fresh := hub.subscribe("agent-4")

	// The old connection tearing down must not remove the replacement.
	hub.unsubscribe("agent-4", old)

	hub.NotifyApproval("agent-4", true)
	select {
	case event := <-fresh:
		if !event.Approved {
			t.Error("expected approved event")
		}
	case <-time.After(time.Second):
		t.Fatal("event lost after reconnect")
	}

	hub.unsubscribe("agent-4", fresh)
	hub.mu.RLock()
	_, remains := hub.subscribers["agent-4"]
	hub.mu.RUnlock()
	if remains {
		t.Error("own unsubscribe should remove the subscription")
	}
}

func TestApprovalHubRequiresClaims(t *testing.T) {
	hub := NewApprovalHub(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/ws/approval", nil)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without claims, got %d", rec.Code)
	}
}
