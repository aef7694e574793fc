package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/models"
	"github.com/sarathss100/eve-client/pkg/api"
	"github.com/sarathss100/eve-client/pkg/localstore"
)

const ticketStoreKey = "ticket-store"

// Hydrator fetches event records referenced by freshly loaded tickets.
// Satisfied by EventCache.
type Hydrator interface {
	FetchMultipleEvents(ctx context.Context, eventIDs []string, token string) map[string]models.Event
}

// TicketCache mirrors the authenticated user's tickets. The collection is
// always replaced wholesale from the server snapshot; tickets have no
// independent local edits worth merging.
type TicketCache struct {
	api    *api.Client
	mirror *localstore.Store
	events Hydrator
	logger *zap.Logger

	mu        sync.Mutex
	tickets   []models.Ticket
	isLoading bool
	lastErr   string

	hydration sync.WaitGroup
}

func NewTicketCache(client *api.Client, mirror *localstore.Store, events Hydrator, logger *zap.Logger) *TicketCache {
	return &TicketCache{
		api:    client,
		mirror: mirror,
		events: events,
		logger: logger.Named("tickets"),
	}
}

func (c *TicketCache) Restore(ctx context.Context) {
	var tickets []models.Ticket
	ok, err := c.mirror.GetJSON(ctx, ticketStoreKey, &tickets)
	if err != nil {
		c.logger.Warn("failed to load persisted tickets", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	c.mu.Lock()
	c.tickets = tickets
	c.mu.Unlock()
}

// FetchUserTickets replaces the collection with the server's current
// snapshot, then hydrates the referenced events in the background. The
// ticket fetch does not wait for hydration, so "ticket present, event
// absent" is a valid transient state for readers.
func (c *TicketCache) FetchUserTickets(ctx context.Context, token string) {
	c.mu.Lock()
	c.isLoading = true
	c.lastErr = ""
	c.mu.Unlock()

	tickets, err := c.api.ListUserTickets(ctx, token)
	if err != nil {
		c.recordError(err)
		c.setLoading(false)
		return
	}

	c.mu.Lock()
	c.tickets = tickets
	c.isLoading = false
	c.mu.Unlock()

	c.persist(ctx)

	eventIDs := distinctEventIDs(tickets)
	if len(eventIDs) == 0 || c.events == nil {
		return
	}

	c.hydration.Add(1)
	go func() {
		defer c.hydration.Done()
		// The caller's context may end with its request; hydration is
		// fire-and-forget and owns its own lifetime.
		c.events.FetchMultipleEvents(context.Background(), eventIDs, token)
	}()
}

// Wait joins any in-flight background hydration. The CLI calls it before
// rendering the joined ticket/event view; tests use it for determinism.
func (c *TicketCache) Wait() {
	c.hydration.Wait()
}

// UpdateTicketStatus patches one ticket in place.
func (c *TicketCache) UpdateTicketStatus(ticketID string, status models.TicketStatus) {
	c.mu.Lock()
	for i := range c.tickets {
		if c.tickets[i].TicketID == ticketID {
			c.tickets[i].TicketStatus = status
		}
	}
	c.mu.Unlock()

	c.persist(context.Background())
}

// TicketForEvent returns the user's ticket for an event, if any.
func (c *TicketCache) TicketForEvent(eventID string) (models.Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ticket := range c.tickets {
		if ticket.EventID == eventID {
			return ticket, true
		}
	}
	return models.Ticket{}, false
}

func (c *TicketCache) Snapshot() []models.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Ticket(nil), c.tickets...)
}

func (c *TicketCache) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isLoading
}

func (c *TicketCache) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *TicketCache) Clear() {
	c.mu.Lock()
	c.tickets = nil
	c.isLoading = false
	c.lastErr = ""
	c.mu.Unlock()

	if err := c.mirror.Delete(context.Background(), ticketStoreKey); err != nil {
		c.logger.Warn("failed to purge persisted tickets", zap.Error(err))
	}
}

func (c *TicketCache) recordError(err error) {
	message := fmt.Sprintf("failed to fetch tickets: %v", err)
	if api.IsNetwork(err) {
		message = "network error: please check your connection and try again"
	}
	c.logger.Warn("ticket fetch failed", zap.Error(err))

	c.mu.Lock()
	c.lastErr = message
	c.mu.Unlock()
}

func (c *TicketCache) setLoading(loading bool) {
	c.mu.Lock()
	c.isLoading = loading
	c.mu.Unlock()
}

func (c *TicketCache) persist(ctx context.Context) {
	if err := c.mirror.PutJSON(ctx, ticketStoreKey, c.Snapshot()); err != nil {
		c.logger.Warn("failed to persist tickets", zap.Error(err))
	}
}

func distinctEventIDs(tickets []models.Ticket) []string {
	seen := make(map[string]bool, len(tickets))
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.EventID != "" && !seen[ticket.EventID] {
			seen[ticket.EventID] = true
			ids = append(ids, ticket.EventID)
		}
	}
	return ids
}
