package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"eventpass/internal/domain"
	"eventpass/internal/logger"
	"eventpass/internal/models"
)

type TicketDBLayer interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	DecrementStock(ctx context.Context, idb bun.IDB, ticketID string, amount int) (*models.Ticket, error)
}

type PurchaseDBLayer interface {
	FindPurchaseByUser(ctx context.Context, idb bun.IDB, userID string) (*models.Purchase, error)
	CreateEmptyPurchase(ctx context.Context, idb bun.IDB, userID string) (*models.Purchase, error)
	FindItemByUserAndTicket(ctx context.Context, idb bun.IDB, userID, ticketID string) (*models.PurchaseItem, error)
	CreateItem(ctx context.Context, idb bun.IDB, item models.PurchaseItem) (*models.PurchaseItem, error)
	UpdateItemQuantity(ctx context.Context, idb bun.IDB, item *models.PurchaseItem, delta int) error
	RecomputeTotal(ctx context.Context, idb bun.IDB, userID string) (float64, error)
	FindHistoryByUser(ctx context.Context, userID string, page, limit int) (*models.Purchase, []models.PurchaseItem, error)
}

type StockLock interface {
	LockTicket(ctx context.Context, ticketID, token string) (bool, error)
	UnlockTicket(ctx context.Context, ticketID, token string) error
}

type KafkaPublisher interface {
	PublishPurchaseAdded(item models.PurchaseItem) error
}

// TxRunner wraps the workflow transaction so tests can substitute an
// in-memory runner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, idb bun.IDB) error) error
}

// BunTxRunner runs the workflow inside a bun transaction.
type BunTxRunner struct {
	DB *bun.DB
}

func (r *BunTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, idb bun.IDB) error) error {
	return r.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

const (
	storeTimeout = 5 * time.Second
	retryBackoff = 100 * time.Millisecond
)

type PurchaseService struct {
	TicketDB   TicketDBLayer
	PurchaseDB PurchaseDBLayer
	Lock       StockLock
	Kafka      KafkaPublisher
	Tx         TxRunner
	Logger     *logger.Logger
}

func NewPurchaseService(ticketDB TicketDBLayer, purchaseDB PurchaseDBLayer, lock StockLock, kafka KafkaPublisher, tx TxRunner, log *logger.Logger) *PurchaseService {
	return &PurchaseService{
		TicketDB:   ticketDB,
		PurchaseDB: purchaseDB,
		Lock:       lock,
		Kafka:      kafka,
		Tx:         tx,
		Logger:     log,
	}
}

func (s *PurchaseService) logf(action, message string) {
	if s.Logger != nil {
		s.Logger.LogPurchase(action, message)
	}
}

// AddToPurchase runs the purchase workflow for one (user, ticket, quantity)
// request: look up the ticket, find or create the user's ledger, create or
// bump the line item, decrement stock, and recompute the ledger total. The
// requested quantity must fit in the ticket's current remaining stock on
// every call; it is not a delta against the existing line item.
//
// Steps 2-6 run inside one transaction, with a per-ticket lock held across
// it, so a failure anywhere leaves neither a dangling item nor a
// half-decremented counter.
func (s *PurchaseService) AddToPurchase(ctx context.Context, userID, ticketID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	ticket, err := s.getTicketWithRetry(ctx, ticketID)
	if err != nil {
		return err
	}

	// Fast-fail before taking the lock. The conditional decrement inside
	// the transaction re-checks this against the live counter.
	if quantity > ticket.AvailableTicket {
		return domain.ErrInsufficientStock
	}

	token := uuid.NewString()
	locked, err := s.Lock.LockTicket(ctx, ticketID, token)
	if err != nil {
		return fmt.Errorf("%w: stock lock: %v", domain.ErrUnavailable, err)
	}
	if !locked {
		return fmt.Errorf("%w: ticket stock is being updated", domain.ErrUnavailable)
	}
	defer func() {
		if err := s.Lock.UnlockTicket(ctx, ticketID, token); err != nil {
			s.logf("UNLOCK", fmt.Sprintf("failed to release stock lock for ticket %s: %v", ticketID, err))
		}
	}()

	var committedItem models.PurchaseItem
	err = s.Tx.RunInTx(ctx, func(ctx context.Context, idb bun.IDB) error {
		ledger, err := s.PurchaseDB.FindPurchaseByUser(ctx, idb, userID)
		if err != nil {
			return err
		}
		if ledger == nil {
			ledger, err = s.PurchaseDB.CreateEmptyPurchase(ctx, idb, userID)
			if err != nil {
				return err
			}
		}

		item, err := s.PurchaseDB.FindItemByUserAndTicket(ctx, idb, userID, ticketID)
		if err != nil {
			return err
		}

		if item != nil {
			if err := s.PurchaseDB.UpdateItemQuantity(ctx, idb, item, quantity); err != nil {
				return err
			}
		} else {
			item, err = s.PurchaseDB.CreateItem(ctx, idb, models.PurchaseItem{
				PurchaseID: ledger.ID,
				TicketID:   ticketID,
				UserID:     userID,
				Quantity:   quantity,
				UnitPrice:  ticket.Price,
				TotalPrice: ticket.Price * float64(quantity),
			})
			if err != nil {
				return err
			}
		}

		// The serialization point: fails the whole transaction, and
		// with it the item mutation above, when stock ran out.
		if _, err := s.TicketDB.DecrementStock(ctx, idb, ticketID, quantity); err != nil {
			return err
		}

		if _, err := s.PurchaseDB.RecomputeTotal(ctx, idb, userID); err != nil {
			return err
		}

		committedItem = *item
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	s.logf("ADD", fmt.Sprintf("user %s bought %d of ticket %s", userID, quantity, ticketID))

	if s.Kafka != nil {
		if err := s.Kafka.PublishPurchaseAdded(committedItem); err != nil {
			s.logf("KAFKA", fmt.Sprintf("publish error (purchase added): %v", err))
		}
	}
	return nil
}

// History returns the user's ledger and its line items, newest first.
func (s *PurchaseService) History(ctx context.Context, userID string, page, limit int) (*models.PurchaseHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	purchase, items, err := s.PurchaseDB.FindHistoryByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	if purchase == nil {
		return &models.PurchaseHistory{}, nil
	}

	history := &models.PurchaseHistory{Purchase: *purchase}
	for _, item := range items {
		history.Items = append(history.Items, models.PurchaseHistoryItem{PurchaseItem: item})
	}
	return history, nil
}

// getTicketWithRetry retries the ticket lookup once on a transient failure.
// Domain errors are returned as-is and never retried.
func (s *PurchaseService) getTicketWithRetry(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.TicketDB.GetTicketByID(ctx, ticketID)
	if err == nil || isDomainErr(err) {
		return ticket, err
	}

	time.Sleep(retryBackoff)
	ticket, err = s.TicketDB.GetTicketByID(ctx, ticketID)
	if err == nil || isDomainErr(err) {
		return ticket, err
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}

func isDomainErr(err error) bool {
	return domain.NotFound(err) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrValidation)
}
