package handler

import (
	"encoding/json"
	"net/http"

	"loyly/internal/saunas/service"
	apperrors "loyly/pkg/errors"
	httputil "loyly/pkg/http"
	"loyly/pkg/logger"
	"loyly/pkg/middleware"
	"loyly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SaunaHandler struct {
	service service.SaunaService
	log     *logger.Logger
}

func NewSaunaHandler(service service.SaunaService, log *logger.Logger) *SaunaHandler {
	return &SaunaHandler{
		service: service,
		log:     log,
	}
}

func (h *SaunaHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Missing identity"))
		return
	}

	var sauna model.Sauna
	if err := json.NewDecoder(r.Body).Decode(&sauna); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	created, err := h.service.Create(r.Context(), identity.UserID, &sauna)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write success response", "handler", "Create", "error", err)
	}
}

func (h *SaunaHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sauna, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, sauna); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "error", err)
	}
}

func (h *SaunaHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "List", apperrors.Unauthorized("Missing identity"))
		return
	}

	saunas, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, saunas); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

func (h *SaunaHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Update", apperrors.Unauthorized("Missing identity"))
		return
	}

	var update model.SaunaUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	sauna, err := h.service.Update(r.Context(), identity.UserID, ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, sauna); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *SaunaHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, "Delete", apperrors.Unauthorized("Missing identity"))
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SaunaHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *SaunaHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/saunas", h.Create)
	router.GET("/api/v1/saunas", h.List)
	router.GET("/api/v1/saunas/id/:id", h.Get)
	router.PATCH("/api/v1/saunas/id/:id", h.Update)
	router.DELETE("/api/v1/saunas/id/:id", h.Delete)
}
