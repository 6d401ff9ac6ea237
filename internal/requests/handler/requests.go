package handler

import (
	"encoding/json"
	"net/http"

	"shelterwalk/internal/requests/service"
	apperrors "shelterwalk/pkg/errors"
	httputil "shelterwalk/pkg/http"
	"shelterwalk/pkg/logger"
	"shelterwalk/pkg/middleware"
	"shelterwalk/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RequestHandler struct {
	service service.RequestService
	log     *logger.Logger
}

func NewRequestHandler(service service.RequestService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		log:     log,
	}
}

type submitExperienceRequest struct {
	RequestedLevel model.Level `json:"requested_level"`
}

func (h *RequestHandler) SubmitExperience(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req submitExperienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "SubmitExperience", apperrors.InvalidInput("Invalid request body"))
		return
	}

	created, err := h.service.SubmitExperience(r.Context(), actor.UserID, req.RequestedLevel)
	if err != nil {
		h.writeErr(w, "SubmitExperience", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "SubmitExperience", "error", err)
	}
}

type resolveRequest struct {
	Approve bool   `json:"approve"`
	Message string `json:"message,omitempty"`
}

func (h *RequestHandler) ResolveExperience(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "ResolveExperience", apperrors.InvalidInput("Invalid request body"))
		return
	}

	resolved, err := h.service.ResolveExperience(r.Context(), ps.ByName("id"), actor, req.Approve, req.Message)
	if err != nil {
		h.writeErr(w, "ResolveExperience", err)
		return
	}

	if err := httputil.WriteSuccess(w, resolved); err != nil {
		h.log.Error("failed to write success response", "handler", "ResolveExperience", "error", err)
	}
}

type submitReactivationRequest struct {
	Reason string `json:"reason"`
}

func (h *RequestHandler) SubmitReactivation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req submitReactivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "SubmitReactivation", apperrors.InvalidInput("Invalid request body"))
		return
	}

	created, err := h.service.SubmitReactivation(r.Context(), actor.UserID, req.Reason)
	if err != nil {
		h.writeErr(w, "SubmitReactivation", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "SubmitReactivation", "error", err)
	}
}

func (h *RequestHandler) ResolveReactivation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "ResolveReactivation", apperrors.InvalidInput("Invalid request body"))
		return
	}

	resolved, err := h.service.ResolveReactivation(r.Context(), ps.ByName("id"), actor, req.Approve)
	if err != nil {
		h.writeErr(w, "ResolveReactivation", err)
		return
	}

	if err := httputil.WriteSuccess(w, resolved); err != nil {
		h.log.Error("failed to write success response", "handler", "ResolveReactivation", "error", err)
	}
}

func (h *RequestHandler) writeErr(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *RequestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/requests/experience", h.SubmitExperience)
	router.POST("/api/v1/requests/experience/id/:id/resolve", h.ResolveExperience)
	router.POST("/api/v1/requests/reactivation", h.SubmitReactivation)
	router.POST("/api/v1/requests/reactivation/id/:id/resolve", h.ResolveReactivation)
}
