package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"loyly/internal/bookings/service"
	apperrors "loyly/pkg/errors"
	httputil "loyly/pkg/http"
	"loyly/pkg/logger"
	"loyly/pkg/middleware"
	"loyly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// RoleChecker resolves the caller's stored profile for role gating on the
// admin routes.
type RoleChecker interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type BookingHandler struct {
	service service.BookingService
	users   RoleChecker
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, users RoleChecker, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		users:   users,
		log:     log,
	}
}

type createBookingRequest struct {
	SaunaID   string    `json:"sauna_id"`
	StartTime time.Time `json:"start_time"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Missing identity"))
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if req.SaunaID == "" || req.StartTime.IsZero() {
		h.writeError(w, "Create", apperrors.InvalidInput("sauna_id and start_time are required"))
		return
	}

	booking, err := h.service.Create(r.Context(), identity.UserID, req.SaunaID, req.StartTime)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Create", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "List", apperrors.Unauthorized("Missing identity"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	bookings, total, err := h.service.ListForUser(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Cancel", apperrors.Unauthorized("Missing identity"))
		return
	}

	if err := h.service.Cancel(r.Context(), identity.UserID, ps.ByName("id")); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) CancelAdmin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "CancelAdmin", apperrors.Unauthorized("Missing identity"))
		return
	}

	user, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "CancelAdmin", err)
		return
	}
	if user.Role != model.RoleAdmin {
		h.writeError(w, "CancelAdmin", apperrors.Forbidden("Admin role required"))
		return
	}

	if err := h.service.CancelAdmin(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "CancelAdmin", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Slots", apperrors.Unauthorized("Missing identity"))
		return
	}

	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		h.writeError(w, "Slots", apperrors.InvalidInput("Query parameter 'date' is required (YYYY-MM-DD)"))
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateParam, time.Local)
	if err != nil {
		h.writeError(w, "Slots", apperrors.InvalidInput("Invalid date, expected YYYY-MM-DD"))
		return
	}

	slots, err := h.service.GetAvailableSlots(r.Context(), identity.UserID, ps.ByName("id"), date)
	if err != nil {
		h.writeError(w, "Slots", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "Slots", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.DELETE("/api/v1/bookings/id/:id", h.Cancel)
	router.DELETE("/api/v1/admin/bookings/id/:id", h.CancelAdmin)
	router.GET("/api/v1/saunas/id/:id/slots", h.Slots)
}
