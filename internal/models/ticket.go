package models

import (
	"time"
)

type TicketStatus string

const (
	TicketConfirmed TicketStatus = "confirmed"
	TicketCancelled TicketStatus = "cancelled"
)

// Ticket is created server-side as the outcome of a completed payment
// session; the client never creates one directly.
type Ticket struct {
	TicketID         string       `json:"ticket_id"`
	EventID          string       `json:"event_id"`
	UserID           string       `json:"user_id"`
	PaymentSessionID string       `json:"payment_session_id"`
	Amount           float64      `json:"amount"`
	TicketStatus     TicketStatus `json:"ticket_status"`
	PurchasedAt      time.Time    `json:"purchased_at"`
}

// Attendee is a user joined with their ticket for one event, as shown on
// the organizer dashboard.
type Attendee struct {
	User
	TicketID         string       `json:"ticket_id"`
	TicketStatus     TicketStatus `json:"ticket_status"`
	Amount           float64      `json:"amount"`
	RegistrationDate time.Time    `json:"registration_date"`
}
