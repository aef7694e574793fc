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

const eventStoreKey = "event-store"

// EventCache is the keyed snapshot of server-owned events. Fetches merge by
// event id with last-write-wins semantics; all responses for one id are
// identical under normal operation, so repeated merges are harmless.
type EventCache struct {
	api    *api.Client
	mirror *localstore.Store
	logger *zap.Logger

	mu        sync.RWMutex
	events    map[string]models.Event
	isLoading bool
	lastErr   string
}

func NewEventCache(client *api.Client, mirror *localstore.Store, logger *zap.Logger) *EventCache {
	return &EventCache{
		api:    client,
		mirror: mirror,
		logger: logger.Named("events"),
		events: make(map[string]models.Event),
	}
}

// Restore loads the persisted event snapshot.
func (c *EventCache) Restore(ctx context.Context) {
	events := make(map[string]models.Event)
	ok, err := c.mirror.GetJSON(ctx, eventStoreKey, &events)
	if err != nil {
		c.logger.Warn("failed to load persisted events", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
}

// FetchEvent fetches one event and merges it into the cache. Failures are
// recorded on the cache, never propagated; the return is nil when the fetch
// did not produce an event.
func (c *EventCache) FetchEvent(ctx context.Context, eventID, token string) *models.Event {
	event, err := c.api.GetEvent(ctx, eventID, token)
	if err != nil {
		c.recordError(eventID, err)
		return nil
	}

	c.mu.Lock()
	c.events[event.EventID] = *event
	c.mu.Unlock()

	c.persist(ctx)
	return event
}

// FetchMultipleEvents fetches the requested ids that are not already cached,
// one concurrent fetch per missing id. Successes are merged, failures are
// dropped (FetchEvent records them); the loading flag is reset on every
// path. Repeated calls with overlapping ids never re-fetch cached entries.
func (c *EventCache) FetchMultipleEvents(ctx context.Context, eventIDs []string, token string) map[string]models.Event {
	c.mu.Lock()
	c.isLoading = true
	c.lastErr = ""
	missing := make([]string, 0, len(eventIDs))
	seen := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		if _, cached := c.events[id]; !cached && !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		c.setLoading(false)
		return c.Snapshot()
	}

	var wg sync.WaitGroup
	for _, id := range missing {
		wg.Add(1)
		go func(eventID string) {
			defer wg.Done()
			c.FetchEvent(ctx, eventID, token)
		}(id)
	}
	wg.Wait()

	c.setLoading(false)
	return c.Snapshot()
}

// BrowseEvents fetches the public event listing and merges it into the
// cache. No credential required.
func (c *EventCache) BrowseEvents(ctx context.Context) []models.Event {
	c.mu.Lock()
	c.isLoading = true
	c.lastErr = ""
	c.mu.Unlock()
	defer c.setLoading(false)

	events, err := c.api.ListEvents(ctx)
	if err != nil {
		c.recordError("listing", err)
		return nil
	}

	c.mu.Lock()
	for _, event := range events {
		c.events[event.EventID] = event
	}
	c.mu.Unlock()

	c.persist(ctx)
	return events
}

func (c *EventCache) Get(eventID string) (models.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	event, ok := c.events[eventID]
	return event, ok
}

func (c *EventCache) Snapshot() map[string]models.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]models.Event, len(c.events))
	for id, event := range c.events {
		snapshot[id] = event
	}
	return snapshot
}

func (c *EventCache) IsLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isLoading
}

// Err returns the last recorded fetch error, empty when healthy.
func (c *EventCache) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Clear resets the collection and purges the durable mirror. Driven only by
// the session's logout signal.
func (c *EventCache) Clear() {
	c.mu.Lock()
	c.events = make(map[string]models.Event)
	c.isLoading = false
	c.lastErr = ""
	c.mu.Unlock()

	if err := c.mirror.Delete(context.Background(), eventStoreKey); err != nil {
		c.logger.Warn("failed to purge persisted events", zap.Error(err))
	}
}

func (c *EventCache) recordError(subject string, err error) {
	message := fmt.Sprintf("failed to fetch event %s: %v", subject, err)
	if api.IsNetwork(err) {
		message = fmt.Sprintf("network error while fetching event %s", subject)
	}
	c.logger.Warn("event fetch failed", zap.String("event_id", subject), zap.Error(err))

	c.mu.Lock()
	c.lastErr = message
	c.mu.Unlock()
}

func (c *EventCache) setLoading(loading bool) {
	c.mu.Lock()
	c.isLoading = loading
	c.mu.Unlock()
}

func (c *EventCache) persist(ctx context.Context) {
	if err := c.mirror.PutJSON(ctx, eventStoreKey, c.Snapshot()); err != nil {
		c.logger.Warn("failed to persist events", zap.Error(err))
	}
}
