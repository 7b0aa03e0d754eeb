package handler

import (
	"encoding/json"
	"net/http"

	"loyly/internal/reminders/scheduler"
	"loyly/internal/reminders/service"
	apperrors "loyly/pkg/errors"
	httputil "loyly/pkg/http"
	"loyly/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// WebhookHandler receives fire-time callbacks from the external job runner.
// Signature verification happens in middleware before the request gets here.
type WebhookHandler struct {
	service service.ReminderService
	log     *logger.Logger
}

func NewWebhookHandler(service service.ReminderService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log,
	}
}

func (h *WebhookHandler) Notify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload scheduler.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, "Notify", apperrors.InvalidInput("Invalid notification payload"))
		return
	}
	if payload.BookingID == "" {
		h.writeError(w, "Notify", apperrors.InvalidInput("booking_id is required"))
		return
	}

	if err := h.service.HandleNotification(r.Context(), payload); err != nil {
		h.writeError(w, "Notify", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/webhooks/notifications", h.Notify)
}
