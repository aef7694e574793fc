package models

import (
	"time"
)

type Event struct {
	EventID          string    `json:"event_id"`
	OrganizerID      string    `json:"organizer_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Date             time.Time `json:"date"`
	Location         string    `json:"location"`
	TotalTickets     int       `json:"total_tickets"`
	AvailableTickets int       `json:"available_tickets"`
	Price            float64   `json:"price"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SoldOut reports whether no tickets remain.
func (e Event) SoldOut() bool {
	return e.AvailableTickets <= 0
}

// EventPayload is the organizer create/update form body.
type EventPayload struct {
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date" validate:"required"`
	Location     string    `json:"location" validate:"required"`
	TotalTickets int       `json:"total_tickets" validate:"required,gt=0"`
	Price        float64   `json:"price" validate:"gte=0"`
}
