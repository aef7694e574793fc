package models

// PaymentTypeTicketBooking is the only purpose the backend accepts for
// client-initiated payment sessions.
const PaymentTypeTicketBooking = "ticket_booking"

const FailureReasonCancelled = "payment_cancelled_or_failed"

type PaymentInitiateRequest struct {
	UserID   string  `json:"user_id" validate:"required"`
	EventID  string  `json:"event_id" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Currency string  `json:"currency" validate:"required,iso4217"`
	Type     string  `json:"type" validate:"required"`
}

// CheckoutSession is the hosted checkout hand-off returned by the backend.
// The client never talks to the payment provider directly; it only opens
// CheckOutURL in a browser.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	CheckOutURL string `json:"checkOutUrl"`
}

type PaymentFailureReport struct {
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}
