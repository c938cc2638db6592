package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventpass/internal/domain"
	"eventpass/internal/logger"
	"eventpass/internal/models"
)

type EventDBLayer interface {
	CreateEvent(ctx context.Context, event models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, page, limit int) ([]models.Event, int, error)
	SearchEvents(ctx context.Context, q string, page, limit int) ([]models.Event, int, error)
}

type TicketDBLayer interface {
	GetTicketsByEventID(ctx context.Context, eventID string) ([]models.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
}

// PurchaseGuard answers whether any line item still references a ticket.
type PurchaseGuard interface {
	FindItemsByTicketIDs(ctx context.Context, ticketIDs []string) ([]models.PurchaseItem, error)
}

type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type KafkaPublisher interface {
	PublishEventDeleted(event models.Event) error
}

type EventService struct {
	DB        EventDBLayer
	TicketDB  TicketDBLayer
	Purchases PurchaseGuard
	Users     UserDirectory
	Kafka     KafkaPublisher
	Logger    *logger.Logger
}

func NewEventService(db EventDBLayer, ticketDB TicketDBLayer, purchases PurchaseGuard, users UserDirectory, kafka KafkaPublisher, log *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		TicketDB:  ticketDB,
		Purchases: purchases,
		Users:     users,
		Kafka:     kafka,
		Logger:    log,
	}
}

func (s *EventService) logf(action, message string) {
	if s.Logger != nil {
		s.Logger.Info("EVENT", fmt.Sprintf("[%s] %s", action, message))
	}
}

func (s *EventService) CreateEvent(ctx context.Context, userID string, req models.EventRequest) (*models.Event, error) {
	if req.Name == "" || req.Venue == "" {
		return nil, fmt.Errorf("%w: name and venue are required", domain.ErrValidation)
	}
	if _, err := s.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	event := models.Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      req.Name,
		Date:      req.Date,
		Time:      req.Time,
		Venue:     req.Venue,
		CreatedAt: time.Now(),
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	s.logf("CREATE", fmt.Sprintf("event %s created by %s", event.ID, userID))
	return &event, nil
}

// EventDetail returns an event together with its tickets.
func (s *EventService) EventDetail(ctx context.Context, id string) (*models.EventDetail, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tickets, err := s.TicketDB.GetTicketsByEventID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EventDetail{Event: *event, Tickets: tickets}, nil
}

func (s *EventService) ListEvents(ctx context.Context, page, limit int) (*models.EventListResponse, error) {
	events, count, err := s.DB.ListEvents(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return &models.EventListResponse{Events: events, Page: page, Limit: limit, TotalCount: count}, nil
}

func (s *EventService) SearchEvents(ctx context.Context, q string, page, limit int) (*models.EventListResponse, error) {
	if q == "" {
		return &models.EventListResponse{Events: []models.Event{}, Page: page, Limit: limit}, nil
	}
	events, count, err := s.DB.SearchEvents(ctx, q, page, limit)
	if err != nil {
		return nil, err
	}
	return &models.EventListResponse{Events: events, Page: page, Limit: limit, TotalCount: count}, nil
}

func (s *EventService) UpdateEvent(ctx context.Context, userID, id string, req models.EventRequest) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		event.Name = req.Name
	}
	if !req.Date.IsZero() {
		event.Date = req.Date
	}
	if req.Time != "" {
		event.Time = req.Time
	}
	if req.Venue != "" {
		event.Venue = req.Venue
	}

	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return nil, err
	}
	return event, nil
}

// DeleteEvent removes an event and its tickets. Deletion is refused while any
// of the event's tickets has been purchased.
func (s *EventService) DeleteEvent(ctx context.Context, userID, id string) error {
	event, err := s.ownedEvent(ctx, userID, id)
	if err != nil {
		return err
	}

	tickets, err := s.TicketDB.GetTicketsByEventID(ctx, id)
	if err != nil {
		return err
	}
	ticketIDs := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ticketIDs = append(ticketIDs, t.ID)
	}

	items, err := s.Purchases.FindItemsByTicketIDs(ctx, ticketIDs)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return fmt.Errorf("%w: cannot delete event with purchased tickets", domain.ErrConflict)
	}

	for _, t := range tickets {
		if err := s.TicketDB.DeleteTicket(ctx, t.ID); err != nil {
			return err
		}
	}
	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return err
	}

	s.logf("DELETE", fmt.Sprintf("event %s deleted by %s", id, userID))
	if s.Kafka != nil {
		if err := s.Kafka.PublishEventDeleted(*event); err != nil {
			s.logf("KAFKA", fmt.Sprintf("publish error (event deleted): %v", err))
		}
	}
	return nil
}

// ownedEvent loads an event and hides it behind ErrEventNotFound unless the
// caller owns it.
func (s *EventService) ownedEvent(ctx context.Context, userID, id string) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.UserID != userID {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}
