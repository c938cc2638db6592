package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventpass/internal/auth"
	"eventpass/internal/domain"
	"eventpass/internal/models"
	"eventpass/internal/utils"
)

type TicketService interface {
	CreateTicket(ctx context.Context, userID string, req models.TicketRequest) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, userID, id string, req models.TicketRequest) (*models.Ticket, error)
	DeleteTicket(ctx context.Context, userID, id string) error
}

type Handler struct {
	Tickets TicketService
}

// CreateTicket handles POST /ticket/add.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}

	var req models.TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body.", err.Error()))
		return
	}

	ticket, err := h.Tickets.CreateTicket(r.Context(), userID, req)
	if err != nil {
		status, message := classifyTicketError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket has been created.", ticket))
}

// UpdateTicket handles PATCH /ticket/{id}.
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}
	id := chi.URLParam(r, "id")

	var req models.TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body.", err.Error()))
		return
	}

	ticket, err := h.Tickets.UpdateTicket(r.Context(), userID, id, req)
	if err != nil {
		status, message := classifyTicketError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket has been updated.", ticket))
}

// DeleteTicket handles DELETE /ticket/{id}.
func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.Tickets.DeleteTicket(r.Context(), userID, id); err != nil {
		status, message := classifyTicketError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket has been deleted.", nil))
}

func classifyTicketError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound, "Ticket not found."
	case errors.Is(err, domain.ErrEventNotFound):
		return http.StatusNotFound, "Event not found."
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "Cannot delete ticket as it has been purchased by users."
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "You are not allowed to create ticket."
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "Invalid ticket request."
	default:
		return http.StatusInternalServerError, "Ticket operation failed."
	}
}
