package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"eventpass/internal/auth"
	"eventpass/internal/domain"
	"eventpass/internal/models"
	"eventpass/internal/utils"
)

// Stable user-facing messages. Clients match on these.
const (
	MsgTicketNotFound    = "Ticket not found."
	MsgInsufficientStock = "Not enough ticket available."
	MsgPurchaseAdded     = "Ticket added to purchase."
)

type PurchaseService interface {
	AddToPurchase(ctx context.Context, userID, ticketID string, quantity int) error
	History(ctx context.Context, userID string, page, limit int) (*models.PurchaseHistory, error)
}

type ReceiptGenerator interface {
	GenerateReceipt(item models.PurchaseItem) ([]byte, error)
}

type Handler struct {
	Purchase PurchaseService
	Receipts ReceiptGenerator
}

// AddToPurchase handles POST /purchase/add.
func (h *Handler) AddToPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}

	var req models.AddToPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body.", err.Error()))
		return
	}

	if err := h.Purchase.AddToPurchase(r.Context(), userID, req.TicketID, req.Quantity); err != nil {
		status, message := classifyPurchaseError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(MsgPurchaseAdded, nil))
}

// History handles GET /purchase/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	history, err := h.Purchase.History(r.Context(), userID, page, limit)
	if err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Could not load purchase history.", err.Error()))
		return
	}

	if h.Receipts != nil {
		for i := range history.Items {
			receipt, err := h.Receipts.GenerateReceipt(history.Items[i].PurchaseItem)
			if err != nil {
				continue // history is still useful without the QR
			}
			history.Items[i].Receipt = receipt
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Purchase history.", history))
}

func classifyPurchaseError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound, MsgTicketNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusInternalServerError, MsgInsufficientStock
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "Invalid purchase request."
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable, please retry."
	default:
		return http.StatusInternalServerError, "Could not add ticket to purchase."
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
