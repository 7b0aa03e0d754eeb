package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"loyly/internal/waitlist/service"
	apperrors "loyly/pkg/errors"
	httputil "loyly/pkg/http"
	"loyly/pkg/logger"
	"loyly/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type WaitlistHandler struct {
	service service.WaitlistService
	log     *logger.Logger
}

func NewWaitlistHandler(service service.WaitlistService, log *logger.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		log:     log,
	}
}

type waitlistRequest struct {
	SaunaID   string    `json:"sauna_id"`
	SlotTime  time.Time `json:"slot_time"`
	BookingID string    `json:"booking_id"`
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Join", apperrors.Unauthorized("Missing identity"))
		return
	}

	var req waitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Join", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if req.SaunaID == "" || req.SlotTime.IsZero() || req.BookingID == "" {
		h.writeError(w, "Join", apperrors.InvalidInput("sauna_id, slot_time and booking_id are required"))
		return
	}

	status, err := h.service.Join(r.Context(), identity.UserID, req.SaunaID, req.SlotTime, req.BookingID)
	if err != nil {
		h.writeError(w, "Join", err)
		return
	}

	if err := httputil.WriteCreated(w, status); err != nil {
		h.log.Error("failed to write success response", "handler", "Join", "error", err)
	}
}

func (h *WaitlistHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "List", apperrors.Unauthorized("Missing identity"))
		return
	}

	statuses, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, statuses); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

func (h *WaitlistHandler) Leave(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Leave", apperrors.Unauthorized("Missing identity"))
		return
	}

	var req waitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Leave", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if req.SaunaID == "" || req.SlotTime.IsZero() {
		h.writeError(w, "Leave", apperrors.InvalidInput("sauna_id and slot_time are required"))
		return
	}

	if err := h.service.Leave(r.Context(), identity.UserID, req.SaunaID, req.SlotTime); err != nil {
		h.writeError(w, "Leave", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *WaitlistHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *WaitlistHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/waitlist", h.Join)
	router.GET("/api/v1/waitlist", h.List)
	router.DELETE("/api/v1/waitlist", h.Leave)
}
