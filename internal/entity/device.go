package entity

import "time"

// Device is a registration remembered locally so the same alias keeps its service-side stats.
type Device struct {
	ID           string    `json:"id"`
	Alias        string    `json:"alias"`
	RegisteredAt time.Time `json:"registered_at"`
}
