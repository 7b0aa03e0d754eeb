package handler

import (
	"encoding/json"
	"net/http"

	"loyly/internal/invites/service"
	"loyly/internal/invites/validator"
	apperrors "loyly/pkg/errors"
	httputil "loyly/pkg/http"
	"loyly/pkg/logger"
	"loyly/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type InviteHandler struct {
	service service.InviteService
	log     *logger.Logger
}

func NewInviteHandler(service service.InviteService, log *logger.Logger) *InviteHandler {
	return &InviteHandler{
		service: service,
		log:     log,
	}
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Missing identity"))
		return
	}

	var input validator.CreateInviteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	invite, err := h.service.Create(r.Context(), identity.UserID, &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, invite); err != nil {
		h.log.Error("failed to write success response", "handler", "Create", "error", err)
	}
}

func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Accept", apperrors.Unauthorized("Missing identity"))
		return
	}

	invite, err := h.service.Accept(r.Context(), identity.UserID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	if err := httputil.WriteSuccess(w, invite); err != nil {
		h.log.Error("failed to write success response", "handler", "Accept", "error", err)
	}
}

func (h *InviteHandler) Withdraw(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Withdraw", apperrors.Unauthorized("Missing identity"))
		return
	}

	if err := h.service.Withdraw(r.Context(), identity.UserID, ps.ByName("id")); err != nil {
		h.writeError(w, "Withdraw", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *InviteHandler) ListBySauna(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "ListBySauna", apperrors.Unauthorized("Missing identity"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListBySauna", err)
		return
	}

	invites, total, err := h.service.ListBySauna(r.Context(), identity.UserID, ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListBySauna", err)
		return
	}

	if err := httputil.WritePaginated(w, invites, total, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListBySauna", "error", err)
	}
}

func (h *InviteHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *InviteHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/invites", h.Create)
	router.POST("/api/v1/invites/id/:id/accept", h.Accept)
	router.DELETE("/api/v1/invites/id/:id", h.Withdraw)
	router.GET("/api/v1/saunas/id/:id/invites", h.ListBySauna)
}
