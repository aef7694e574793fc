package models

import (
	"encoding/json"
)

// Response is the backend's JSON envelope, decoded client-side. Data stays
// raw because its shape depends on the endpoint.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Token   string          `json:"token,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Reason extracts the most specific human-readable message the backend sent.
func (r Response) Reason() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}
