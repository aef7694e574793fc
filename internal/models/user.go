package models

import (
	"time"
)

// Role gates access to the organizer dashboard and its operations.
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleAttendee  Role = "attendee"
)

func (r Role) Valid() bool {
	return r == RoleOrganizer || r == RoleAttendee
}

type User struct {
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Role        Role       `json:"role"`
	JoinedDate  *time.Time `json:"joined_date,omitempty"`
}

type UpdateRoleRequest struct {
	NewRole Role `json:"new_role" validate:"required,role"`
}
