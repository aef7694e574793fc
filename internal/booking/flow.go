package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/config"
	"github.com/sarathss100/eve-client/internal/models"
	"github.com/sarathss100/eve-client/internal/store"
	"github.com/sarathss100/eve-client/pkg/api"
	"github.com/sarathss100/eve-client/pkg/localstore"
)

// ErrNotAuthenticated is returned when booking is attempted without a live
// session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Outcome is the terminal state of one reconciliation run.
type Outcome string

const (
	// OutcomeConfirmed: the backend issued a ticket for the session.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeProcessing: the payment succeeded but no ticket materialized
	// within the polling budget. Soft — the user is told to check their
	// tickets later, not that anything failed.
	OutcomeProcessing Outcome = "processing"
	// OutcomeFailed: the provider reported the session cancelled or failed.
	OutcomeFailed Outcome = "failed"
)

// ReturnParams are the query parameters the payment provider appends when
// redirecting back from the hosted checkout page.
type ReturnParams struct {
	SessionID string
	EventID   string
	Success   bool
}

// Result of initiating (or resuming) a booking.
type Result struct {
	CheckoutURL string
	SessionID   string
	// Reused is set when a live pending marker short-circuited the
	// initiation: the caller must send the user back to the stored
	// checkout URL instead of creating a second session.
	Reused bool
}

// Flow drives a booking from initiation through post-redirect
// reconciliation. Per event it moves Idle -> Initiating ->
// AwaitingRedirectReturn -> Polling -> Resolved; the pending marker in the
// local store is the only state shared across the browser round-trip.
type Flow struct {
	api     *api.Client
	markers *localstore.Store
	session *store.Session
	tickets *store.TicketCache
	logger  *zap.Logger

	currency    string
	interval    time.Duration
	maxAttempts int

	// sleep is injectable so tests can drive the polling loop without
	// real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFlow(client *api.Client, markers *localstore.Store, session *store.Session, tickets *store.TicketCache, cfg config.PaymentConfig, logger *zap.Logger) *Flow {
	return &Flow{
		api:         client,
		markers:     markers,
		session:     session,
		tickets:     tickets,
		logger:      logger.Named("booking"),
		currency:    cfg.Currency,
		interval:    cfg.PollInterval,
		maxAttempts: cfg.PollMaxAttempts,
		sleep:       waitInterval,
	}
}

// Book initiates a payment session for the event. When a pending marker
// already exists the backend is not called again; the stored checkout URL is
// returned for re-navigation. Otherwise the marker is persisted immediately
// after the initiating call resolves, before any other suspension point, so
// a concurrent attempt for the same event cannot slip between check and set.
func (f *Flow) Book(ctx context.Context, event models.Event) (*Result, error) {
	user := f.session.CurrentUser()
	if !f.session.IsAuthenticated() || user == nil {
		return nil, ErrNotAuthenticated
	}

	checkoutURL, sessionID, pending, err := f.markers.PendingSession(ctx, event.EventID)
	if err != nil {
		return nil, err
	}
	if pending {
		f.logger.Info("reusing active payment session",
			zap.String("event_id", event.EventID),
			zap.String("session_id", sessionID),
		)
		return &Result{CheckoutURL: checkoutURL, SessionID: sessionID, Reused: true}, nil
	}

	session, err := f.api.InitiatePayment(ctx, models.PaymentInitiateRequest{
		UserID:   user.UserID,
		EventID:  event.EventID,
		Amount:   event.Price,
		Currency: f.currency,
		Type:     models.PaymentTypeTicketBooking,
	}, f.session.Token())
	if err != nil {
		return nil, err
	}

	if err := f.markers.SavePendingSession(ctx, event.EventID, session.CheckOutURL, session.SessionID); err != nil {
		// The session already exists server-side; losing the marker only
		// weakens duplicate protection, it must not block the booking.
		f.logger.Warn("failed to persist pending session marker", zap.Error(err))
	}

	return &Result{CheckoutURL: session.CheckOutURL, SessionID: session.SessionID}, nil
}

// HandleReturn reconciles a redirect return from the checkout page. Every
// terminal outcome clears the pending marker; no marker outlives this call.
func (f *Flow) HandleReturn(ctx context.Context, params ReturnParams) Outcome {
	defer func() {
		// Background context: a cancelled poll must still drop the marker.
		if err := f.markers.ClearPendingSession(context.Background(), params.EventID); err != nil {
			f.logger.Warn("failed to clear pending session marker",
				zap.String("event_id", params.EventID),
				zap.Error(err),
			)
		}
	}()

	if !params.Success {
		f.reportFailure(ctx, params)
		return OutcomeFailed
	}

	return f.awaitTicket(ctx, params)
}

// awaitTicket polls for the ticket issued against the session, a fixed
// number of attempts at a fixed interval. Exhausting the budget is not a
// failure: the payment already succeeded.
func (f *Flow) awaitTicket(ctx context.Context, params ReturnParams) Outcome {
	token := f.session.Token()

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, f.interval); err != nil {
				f.logger.Info("polling abandoned",
					zap.String("session_id", params.SessionID),
					zap.Int("attempts", attempt-1),
				)
				return OutcomeProcessing
			}
		}

		ticket, err := f.api.TicketBySession(ctx, params.SessionID, token)
		if err != nil {
			if !api.IsNotFound(err) {
				f.logger.Debug("ticket poll attempt failed",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			continue
		}

		f.logger.Info("ticket confirmed",
			zap.String("ticket_id", ticket.TicketID),
			zap.String("event_id", ticket.EventID),
			zap.Int("attempts", attempt),
		)
		f.tickets.FetchUserTickets(ctx, token)
		return OutcomeConfirmed
	}

	f.logger.Info("polling budget exhausted without a ticket",
		zap.String("session_id", params.SessionID),
		zap.Int("attempts", f.maxAttempts),
	)
	return OutcomeProcessing
}

// reportFailure notifies the backend of a cancelled or failed session.
// Best-effort: a network failure here is logged and swallowed.
func (f *Flow) reportFailure(ctx context.Context, params ReturnParams) {
	if params.SessionID == "" {
		return
	}
	report := models.PaymentFailureReport{
		EventID:   params.EventID,
		SessionID: params.SessionID,
		Reason:    models.FailureReasonCancelled,
	}
	if err := f.api.ReportFailedPayment(ctx, report, f.session.Token()); err != nil {
		f.logger.Warn("failed to report cancelled payment", zap.Error(err))
	}
}

func waitInterval(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
