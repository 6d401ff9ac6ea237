package handler

import (
	"encoding/json"
	"net/http"

	"shelterwalk/internal/catalog/service"
	apperrors "shelterwalk/pkg/errors"
	httputil "shelterwalk/pkg/http"
	"shelterwalk/pkg/logger"
	"shelterwalk/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type DogHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewDogHandler(service service.CatalogService, log *logger.Logger) *DogHandler {
	return &DogHandler{
		service: service,
		log:     log,
	}
}

func (h *DogHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dogs, err := h.service.List(r.Context())
	if err != nil {
		h.writeErr(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, dogs); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

func (h *DogHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dog, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeErr(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, dog); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

type availabilityRequest struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func (h *DogHandler) SetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "SetAvailability", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.SetAvailability(r.Context(), actor, ps.ByName("id"), req.Available, req.Reason); err != nil {
		h.writeErr(w, "SetAvailability", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *DogHandler) writeErr(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *DogHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/dogs", h.List)
	router.GET("/api/v1/dogs/id/:id", h.GetByID)
	router.PATCH("/api/v1/dogs/id/:id/availability", h.SetAvailability)
}
