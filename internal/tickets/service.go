package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventpass/internal/domain"
	"eventpass/internal/logger"
	"eventpass/internal/models"
)

type TicketDBLayer interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	CreateTicket(ctx context.Context, ticket models.Ticket) error
	UpdateTicket(ctx context.Context, ticket models.Ticket) error
	DeleteTicket(ctx context.Context, id string) error
}

type EventDBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

type PurchaseGuard interface {
	FindItemByTicketID(ctx context.Context, ticketID string) (*models.PurchaseItem, error)
}

type KafkaPublisher interface {
	PublishTicketDeleted(ticket models.Ticket) error
}

type TicketService struct {
	DB        TicketDBLayer
	EventDB   EventDBLayer
	Purchases PurchaseGuard
	Kafka     KafkaPublisher
	Logger    *logger.Logger
}

func NewTicketService(db TicketDBLayer, eventDB EventDBLayer, purchases PurchaseGuard, kafka KafkaPublisher, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:        db,
		EventDB:   eventDB,
		Purchases: purchases,
		Kafka:     kafka,
		Logger:    log,
	}
}

func (s *TicketService) logf(action, message string) {
	if s.Logger != nil {
		s.Logger.Info("TICKET", fmt.Sprintf("[%s] %s", action, message))
	}
}

// CreateTicket adds a ticket category to an event the caller owns.
func (s *TicketService) CreateTicket(ctx context.Context, userID string, req models.TicketRequest) (*models.Ticket, error) {
	if !models.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, req.Category)
	}
	if req.Price < 0 || req.AvailableTicket < 0 {
		return nil, fmt.Errorf("%w: price and available_ticket must be non-negative", domain.ErrValidation)
	}

	event, err := s.EventDB.GetEventByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.UserID != userID {
		return nil, fmt.Errorf("%w: you are not allowed to create tickets for this event", domain.ErrUnauthorized)
	}

	ticket := models.Ticket{
		ID:              uuid.NewString(),
		EventID:         req.EventID,
		Category:        req.Category,
		Price:           req.Price,
		AvailableTicket: req.AvailableTicket,
		CreatedAt:       time.Now(),
	}
	if err := s.DB.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	s.logf("CREATE", fmt.Sprintf("ticket %s (%s) for event %s", ticket.ID, ticket.Category, ticket.EventID))
	return &ticket, nil
}

func (s *TicketService) UpdateTicket(ctx context.Context, userID, id string, req models.TicketRequest) (*models.Ticket, error) {
	ticket, err := s.ownedTicket(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Category != "" {
		if !models.ValidCategory(req.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, req.Category)
		}
		ticket.Category = req.Category
	}
	if req.Price > 0 {
		ticket.Price = req.Price
	}
	if req.AvailableTicket > 0 {
		ticket.AvailableTicket = req.AvailableTicket
	}

	if err := s.DB.UpdateTicket(ctx, *ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// DeleteTicket removes a ticket category. Refused while any line item still
// references the ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, userID, id string) error {
	item, err := s.Purchases.FindItemByTicketID(ctx, id)
	if err != nil {
		return err
	}
	if item != nil {
		return fmt.Errorf("%w: cannot delete ticket as it has been purchased", domain.ErrConflict)
	}

	ticket, err := s.ownedTicket(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.DB.DeleteTicket(ctx, id); err != nil {
		return err
	}

	s.logf("DELETE", fmt.Sprintf("ticket %s deleted by %s", id, userID))
	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketDeleted(*ticket); err != nil {
			s.logf("KAFKA", fmt.Sprintf("publish error (ticket deleted): %v", err))
		}
	}
	return nil
}

// ownedTicket loads a ticket and hides it behind ErrTicketNotFound unless
// the caller owns the ticket's event.
func (s *TicketService) ownedTicket(ctx context.Context, userID, id string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.EventDB.GetEventByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if event.UserID != userID {
		return nil, domain.ErrTicketNotFound
	}
	return ticket, nil
}
