package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Date      time.Time `bun:"date,notnull" json:"date"`
	Time      string    `bun:"time,notnull" json:"time"`
	Venue     string    `bun:"venue,notnull" json:"venue"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// EventDetail is an event joined with its tickets.
type EventDetail struct {
	Event   Event    `json:"event"`
	Tickets []Ticket `json:"tickets"`
}

type EventRequest struct {
	Name  string    `json:"name"`
	Date  time.Time `json:"date"`
	Time  string    `json:"time"`
	Venue string    `json:"venue"`
}

type EventListResponse struct {
	Events     []Event `json:"events"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalCount int     `json:"total_count"`
}
