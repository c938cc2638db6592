package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket categories as stored in the tickets table.
const (
	CategoryVIP              = "VIP"
	CategoryGeneralAdmission = "General Admission"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID              string    `bun:"id,pk" json:"id"`
	EventID         string    `bun:"event_id,notnull" json:"event_id"`
	Category        string    `bun:"category,notnull" json:"category"`
	Price           float64   `bun:"price,notnull" json:"price"`
	AvailableTicket int       `bun:"available_ticket,notnull" json:"available_ticket"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
}

type TicketRequest struct {
	EventID         string  `json:"event_id"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	AvailableTicket int     `json:"available_ticket"`
}

// ValidCategory reports whether c is one of the supported ticket categories.
func ValidCategory(c string) bool {
	return c == CategoryVIP || c == CategoryGeneralAdmission
}
