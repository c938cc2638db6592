package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"eventpass/internal/auth"
	"eventpass/internal/domain"
	"eventpass/internal/models"
	"eventpass/internal/utils"
)

type EventService interface {
	CreateEvent(ctx context.Context, userID string, req models.EventRequest) (*models.Event, error)
	EventDetail(ctx context.Context, id string) (*models.EventDetail, error)
	ListEvents(ctx context.Context, page, limit int) (*models.EventListResponse, error)
	SearchEvents(ctx context.Context, q string, page, limit int) (*models.EventListResponse, error)
	UpdateEvent(ctx context.Context, userID, id string, req models.EventRequest) (*models.Event, error)
	DeleteEvent(ctx context.Context, userID, id string) error
}

type Handler struct {
	Events EventService
}

// ListEvents handles GET /event/list.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	list, err := h.Events.ListEvents(r.Context(), page, limit)
	if err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Could not list events.", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event list.", list))
}

// SearchEvents handles GET /event/search?q=.
func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	list, err := h.Events.SearchEvents(r.Context(), q, page, limit)
	if err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Could not search events.", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event search results.", list))
}

// EventDetail handles GET /event/{id}.
func (h *Handler) EventDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.Events.EventDetail(r.Context(), id)
	if err != nil {
		status, message := classifyEventError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event detail.", detail))
}

// CreateEvent handles POST /event/add.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body.", err.Error()))
		return
	}

	event, err := h.Events.CreateEvent(r.Context(), userID, req)
	if err != nil {
		status, message := classifyEventError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event has been created.", event))
}

// UpdateEvent handles PATCH /event/{id}.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}
	id := chi.URLParam(r, "id")

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body.", err.Error()))
		return
	}

	event, err := h.Events.UpdateEvent(r.Context(), userID, id, req)
	if err != nil {
		status, message := classifyEventError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event has been updated.", event))
}

// DeleteEvent handles DELETE /event/{id}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized.", "missing user identity"))
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.Events.DeleteEvent(r.Context(), userID, id); err != nil {
		status, message := classifyEventError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event has been deleted.", nil))
}

func classifyEventError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		return http.StatusNotFound, "Event not found."
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "Account not found."
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "Cannot delete event with purchased tickets."
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "Invalid event request."
	default:
		return http.StatusInternalServerError, "Event operation failed."
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
