package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/models"
	"github.com/sarathss100/eve-client/pkg/api"
	"github.com/sarathss100/eve-client/pkg/localstore"
	"github.com/sarathss100/eve-client/pkg/utils"
)

const userStoreKey = "user-store"

// UserCache mirrors the platform's user directory for the organizer
// dashboard. Attendee-role clients never populate it.
type UserCache struct {
	api      *api.Client
	mirror   *localstore.Store
	validate *utils.Validator
	logger   *zap.Logger

	mu        sync.Mutex
	users     []models.User
	isLoading bool
	lastErr   string

	// onUserUpdated lets the wiring layer react to role changes (the
	// session must adopt the new record when the changed user is the
	// current identity) without a store-to-store import.
	onUserUpdated func(models.User)
}

func NewUserCache(client *api.Client, mirror *localstore.Store, validate *utils.Validator, logger *zap.Logger) *UserCache {
	return &UserCache{
		api:      client,
		mirror:   mirror,
		validate: validate,
		logger:   logger.Named("users"),
	}
}

func (c *UserCache) SetOnUserUpdated(fn func(models.User)) {
	c.mu.Lock()
	c.onUserUpdated = fn
	c.mu.Unlock()
}

func (c *UserCache) Restore(ctx context.Context) {
	var users []models.User
	ok, err := c.mirror.GetJSON(ctx, userStoreKey, &users)
	if err != nil {
		c.logger.Warn("failed to load persisted users", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	c.mu.Lock()
	c.users = users
	c.mu.Unlock()
}

// FetchAllUsers replaces the collection with the server snapshot.
func (c *UserCache) FetchAllUsers(ctx context.Context, token string) {
	c.mu.Lock()
	c.isLoading = true
	c.lastErr = ""
	c.mu.Unlock()

	users, err := c.api.ListUsers(ctx, token)
	if err != nil {
		c.recordError("fetch users", err)
		c.setLoading(false)
		return
	}

	c.mu.Lock()
	c.users = users
	c.isLoading = false
	c.mu.Unlock()

	c.persist(ctx)
}

// UpdateUserRole issues the mutation and applies a shallow local patch with
// the record the backend returns. The caller stays responsible for
// re-fetching when it wants the full authoritative state.
func (c *UserCache) UpdateUserRole(ctx context.Context, userID string, role models.Role, token string) (*models.User, error) {
	if err := c.validate.Struct(models.UpdateRoleRequest{NewRole: role}); err != nil {
		return nil, &api.ValidationError{Message: fmt.Sprintf("unsupported role %q", role)}
	}

	updated, err := c.api.UpdateUserRole(ctx, userID, role, token)
	if err != nil {
		c.recordError("update user role", err)
		return nil, err
	}

	c.mu.Lock()
	for i := range c.users {
		if c.users[i].UserID == userID {
			c.users[i] = *updated
		}
	}
	hook := c.onUserUpdated
	c.mu.Unlock()

	c.persist(ctx)

	if hook != nil {
		hook(*updated)
	}
	return updated, nil
}

// Attendees joins the given tickets with the cached users for one event:
// the organizer dashboard's attendee list.
func (c *UserCache) Attendees(eventID string, tickets []models.Ticket) []models.Attendee {
	c.mu.Lock()
	byID := make(map[string]models.User, len(c.users))
	for _, user := range c.users {
		byID[user.UserID] = user
	}
	c.mu.Unlock()

	attendees := make([]models.Attendee, 0)
	for _, ticket := range tickets {
		if ticket.EventID != eventID {
			continue
		}
		user, ok := byID[ticket.UserID]
		if !ok {
			continue
		}
		attendees = append(attendees, models.Attendee{
			User:             user,
			TicketID:         ticket.TicketID,
			TicketStatus:     ticket.TicketStatus,
			Amount:           ticket.Amount,
			RegistrationDate: ticket.PurchasedAt,
		})
	}
	return attendees
}

func (c *UserCache) Snapshot() []models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.User(nil), c.users...)
}

func (c *UserCache) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isLoading
}

func (c *UserCache) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *UserCache) Clear() {
	c.mu.Lock()
	c.users = nil
	c.isLoading = false
	c.lastErr = ""
	c.mu.Unlock()

	if err := c.mirror.Delete(context.Background(), userStoreKey); err != nil {
		c.logger.Warn("failed to purge persisted users", zap.Error(err))
	}
}

func (c *UserCache) recordError(op string, err error) {
	message := fmt.Sprintf("failed to %s: %v", op, err)
	if api.IsNetwork(err) {
		message = "network error: please check your connection and try again"
	}
	c.logger.Warn("user cache operation failed", zap.String("op", op), zap.Error(err))

	c.mu.Lock()
	c.lastErr = message
	c.mu.Unlock()
}

func (c *UserCache) setLoading(loading bool) {
	c.mu.Lock()
	c.isLoading = loading
	c.mu.Unlock()
}

func (c *UserCache) persist(ctx context.Context) {
	if err := c.mirror.PutJSON(ctx, userStoreKey, c.Snapshot()); err != nil {
		c.logger.Warn("failed to persist users", zap.Error(err))
	}
}
