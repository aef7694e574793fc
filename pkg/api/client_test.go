package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, zap.NewNop())
}

func TestSignInDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/signin" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"token":"tok-1","data":{"user_id":"u1","name":"Asha","email":"asha@example.com","role":"attendee"}}`))
	}))

	resp, err := client.SignIn(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if resp.Token != "tok-1" {
		t.Errorf("token = %q, want tok-1", resp.Token)
	}
	if resp.User.UserID != "u1" || resp.User.Role != models.RoleAttendee {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestGetEventNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false,"message":"no such event"}`, http.StatusNotFound)
	}))

	_, err := client.GetEvent(context.Background(), "ev-missing", "tok")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHTTPErrorCarriesBackendMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"error":"invalid email or password"}`))
	}))

	_, err := client.SignIn(context.Background(), models.LoginRequest{Email: "a@b.c", Password: "nope"})
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if he.Status != 401 || he.Message != "invalid email or password" {
		t.Errorf("HTTPError = %+v", he)
	}
	if !IsUnauthorized(err) {
		t.Error("IsUnauthorized = false, want true")
	}
}

func TestNetworkErrorOnUnreachableBackend(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, zap.NewNop())
	_, err := client.ListEvents(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
}

func TestTicketBySessionPendingIsNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with no record: payment still processing.
		w.Write([]byte(`{"success":false}`))
	}))

	_, err := client.TicketBySession(context.Background(), "cs_1", "tok")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound while ticket pending", err)
	}
}

func TestTicketBySessionDecodesTicket(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tickets/by-session/cs_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"ticket_id":"t1","event_id":"ev1","user_id":"u1","payment_session_id":"cs_1","amount":250,"ticket_status":"confirmed","purchased_at":"2026-08-30T10:00:00Z"}}`))
	}))

	ticket, err := client.TicketBySession(context.Background(), "cs_1", "tok")
	if err != nil {
		t.Fatalf("TicketBySession failed: %v", err)
	}
	if ticket.TicketID != "t1" || ticket.TicketStatus != models.TicketConfirmed {
		t.Errorf("ticket = %+v", ticket)
	}
}

func TestListUserTickets(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"success":true,"data":{"ticketDetails":[{"ticket_id":"t1","event_id":"ev1"},{"ticket_id":"t2","event_id":"ev2"}]}}`))
	}))

	tickets, err := client.ListUserTickets(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListUserTickets failed: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("got %d tickets, want 2", len(tickets))
	}
}
