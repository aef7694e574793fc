package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sarathss100/eve-client/internal/models"
	"github.com/sarathss100/eve-client/pkg/api"
)

const usersListing = `{"success":true,"data":{"users":[` +
	`{"user_id":"u1","name":"Asha","email":"asha@example.com","role":"attendee"},` +
	`{"user_id":"u2","name":"Ravi","email":"ravi@example.com","role":"attendee"}]}}`

func TestFetchAllUsersReplacesCollection(t *testing.T) {
	env := newTestEnv(t)
	env.backend.respond("/api/v1/organizer/users", usersListing)

	cache := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	cache.FetchAllUsers(context.Background(), "tok")

	users := cache.Snapshot()
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if cache.IsLoading() {
		t.Error("loading flag stuck")
	}
}

func TestUpdateUserRolePatchesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	env.backend.respond("/api/v1/organizer/users", usersListing)
	env.backend.respond("/api/v1/organizer/users/role/u2",
		`{"success":true,"data":{"user_id":"u2","name":"Ravi","email":"ravi@example.com","role":"organizer"}}`)

	cache := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	cache.FetchAllUsers(context.Background(), "tok")

	var notified *models.User
	cache.SetOnUserUpdated(func(user models.User) { notified = &user })

	updated, err := cache.UpdateUserRole(context.Background(), "u2", models.RoleOrganizer, "tok")
	if err != nil {
		t.Fatalf("UpdateUserRole failed: %v", err)
	}
	if updated.Role != models.RoleOrganizer {
		t.Errorf("updated role = %q", updated.Role)
	}

	for _, user := range cache.Snapshot() {
		if user.UserID == "u2" && user.Role != models.RoleOrganizer {
			t.Errorf("cached record not patched: %+v", user)
		}
	}
	if notified == nil || notified.UserID != "u2" || notified.Role != models.RoleOrganizer {
		t.Errorf("update hook got %+v", notified)
	}
}

func TestUpdateUserRoleRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)

	cache := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	_, err := cache.UpdateUserRole(context.Background(), "u2", models.Role("admin"), "tok")

	var ve *api.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if env.backend.hitCount("/api/v1/organizer/users/role/u2") != 0 {
		t.Error("invalid role reached the backend")
	}
}

func TestUpdateUserRoleServerError(t *testing.T) {
	env := newTestEnv(t)
	env.backend.respond("/api/v1/organizer/users", usersListing)
	env.backend.respondStatus("/api/v1/organizer/users/role/u2", 500, `{"success":false,"error":"boom"}`)

	cache := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	cache.FetchAllUsers(context.Background(), "tok")

	if _, err := cache.UpdateUserRole(context.Background(), "u2", models.RoleOrganizer, "tok"); err == nil {
		t.Fatal("expected error")
	}
	if cache.Err() == "" {
		t.Error("failure was not recorded")
	}
	for _, user := range cache.Snapshot() {
		if user.UserID == "u2" && user.Role != models.RoleAttendee {
			t.Errorf("failed update still patched the cache: %+v", user)
		}
	}
}

func TestAttendeesJoinsTicketsWithUsers(t *testing.T) {
	env := newTestEnv(t)
	env.backend.respond("/api/v1/organizer/users", usersListing)

	cache := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	cache.FetchAllUsers(context.Background(), "tok")

	purchased := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	tickets := []models.Ticket{
		{TicketID: "t1", EventID: "ev1", UserID: "u1", TicketStatus: models.TicketConfirmed, Amount: 250, PurchasedAt: purchased},
		{TicketID: "t2", EventID: "ev2", UserID: "u2"},
		{TicketID: "t3", EventID: "ev1", UserID: "u-unknown"},
	}

	attendees := cache.Attendees("ev1", tickets)
	if len(attendees) != 1 {
		t.Fatalf("got %d attendees, want 1 (other event and unknown user excluded)", len(attendees))
	}
	a := attendees[0]
	if a.UserID != "u1" || a.TicketID != "t1" || a.Amount != 250 || !a.RegistrationDate.Equal(purchased) {
		t.Errorf("attendee = %+v", a)
	}
}

func TestUserCachePersistsAndRestores(t *testing.T) {
	env := newTestEnv(t)
	env.backend.respond("/api/v1/organizer/users", usersListing)

	cache := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	cache.FetchAllUsers(context.Background(), "tok")

	restored := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	restored.Restore(context.Background())
	if len(restored.Snapshot()) != 2 {
		t.Errorf("restored %d users, want 2", len(restored.Snapshot()))
	}

	cache.Clear()
	cleared := NewUserCache(env.client, env.mirror, env.validate, env.logger)
	cleared.Restore(context.Background())
	if len(cleared.Snapshot()) != 0 {
		t.Error("cleared cache restored stale users")
	}
}
