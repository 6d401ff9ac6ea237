package handler

import (
	"encoding/json"
	"net/http"

	"shelterwalk/internal/calendar/service"
	apperrors "shelterwalk/pkg/errors"
	httputil "shelterwalk/pkg/http"
	"shelterwalk/pkg/logger"
	"shelterwalk/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type CalendarHandler struct {
	service service.CalendarService
	log     *logger.Logger
}

func NewCalendarHandler(service service.CalendarService, log *logger.Logger) *CalendarHandler {
	return &CalendarHandler{
		service: service,
		log:     log,
	}
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dates, err := h.service.List(r.Context())
	if err != nil {
		h.writeErr(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, dates); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

type blockDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (h *CalendarHandler) Block(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req blockDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "Block", apperrors.InvalidInput("Invalid request body"))
		return
	}

	blocked, err := h.service.Block(r.Context(), actor, req.Date, req.Reason)
	if err != nil {
		h.writeErr(w, "Block", err)
		return
	}

	if err := httputil.WriteCreated(w, blocked); err != nil {
		h.log.Error("failed to write created response", "handler", "Block", "error", err)
	}
}

func (h *CalendarHandler) Unblock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	if err := h.service.Unblock(r.Context(), actor, ps.ByName("date")); err != nil {
		h.writeErr(w, "Unblock", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CalendarHandler) writeErr(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *CalendarHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/blocked-dates", h.List)
	router.POST("/api/v1/blocked-dates", h.Block)
	router.DELETE("/api/v1/blocked-dates/date/:date", h.Unblock)
}
