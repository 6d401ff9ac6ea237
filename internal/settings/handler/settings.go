package handler

import (
	"encoding/json"
	"net/http"

	"shelterwalk/internal/settings/service"
	apperrors "shelterwalk/pkg/errors"
	httputil "shelterwalk/pkg/http"
	"shelterwalk/pkg/logger"
	"shelterwalk/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type SettingsHandler struct {
	store service.PolicyStore
	log   *logger.Logger
}

func NewSettingsHandler(store service.PolicyStore, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		store: store,
		log:   log,
	}
}

func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	settings, err := h.store.All(r.Context())
	if err != nil {
		h.writeErr(w, "GetAll", err)
		return
	}

	if err := httputil.WriteSuccess(w, settings); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "error", err)
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("key")

	value, err := h.store.Get(r.Context(), key)
	if err != nil {
		h.writeErr(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"key": key, "value": value}); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "error", err)
	}
}

type setSettingRequest struct {
	Value string `json:"value"`
}

func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req setSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "Set", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.store.Set(r.Context(), actor, ps.ByName("key"), req.Value); err != nil {
		h.writeErr(w, "Set", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	if err := h.store.ResetDefaults(r.Context(), actor); err != nil {
		h.writeErr(w, "Reset", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SettingsHandler) writeErr(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *SettingsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/settings", h.GetAll)
	router.GET("/api/v1/settings/key/:key", h.Get)
	router.PUT("/api/v1/settings/key/:key", h.Set)
	router.POST("/api/v1/settings/reset", h.Reset)
}
