package handler

import (
	"encoding/json"
	"net/http"

	"shelterwalk/internal/booking/service"
	apperrors "shelterwalk/pkg/errors"
	httputil "shelterwalk/pkg/http"
	"shelterwalk/pkg/logger"
	"shelterwalk/pkg/middleware"
	"shelterwalk/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

type createBookingRequest struct {
	DogID         string         `json:"dog_id"`
	Date          string         `json:"date"`
	WalkType      model.WalkType `json:"walk_type"`
	ScheduledTime string         `json:"scheduled_time"`
	Notes         string         `json:"notes,omitempty"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking := &model.Booking{
		UserID:        actor.UserID,
		DogID:         req.DogID,
		Date:          req.Date,
		WalkType:      req.WalkType,
		ScheduledTime: req.ScheduledTime,
		Notes:         req.Notes,
	}
	created, err := h.service.Create(r.Context(), booking)
	if err != nil {
		h.writeErr(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

type cancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req cancelBookingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeErr(w, "Cancel", apperrors.InvalidInput("Invalid request body"))
			return
		}
	}

	cancelled, err := h.service.Cancel(r.Context(), ps.ByName("id"), actor, req.Reason)
	if err != nil {
		h.writeErr(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, cancelled); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "error", err)
	}
}

type moveBookingRequest struct {
	Date          string `json:"date"`
	ScheduledTime string `json:"scheduled_time"`
}

func (h *BookingHandler) Move(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req moveBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "Move", apperrors.InvalidInput("Invalid request body"))
		return
	}

	moved, err := h.service.Move(r.Context(), ps.ByName("id"), actor, req.Date, req.ScheduledTime)
	if err != nil {
		h.writeErr(w, "Move", err)
		return
	}

	if err := httputil.WriteSuccess(w, moved); err != nil {
		h.log.Error("failed to write success response", "handler", "Move", "error", err)
	}
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *BookingHandler) AddNotes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, "AddNotes", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.AddNotes(r.Context(), ps.ByName("id"), actor, req.Notes); err != nil {
		h.writeErr(w, "AddNotes", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	completed, err := h.service.Complete(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeErr(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, completed); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "error", err)
	}
}

// ListUpcoming returns the caller's upcoming walks. Admins may pass ?user_id=
// to view another user's schedule.
func (h *BookingHandler) ListUpcoming(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	userID := actor.UserID
	if requested := r.URL.Query().Get("user_id"); requested != "" && requested != actor.UserID {
		if !actor.Admin() {
			h.writeErr(w, "ListUpcoming", apperrors.Forbidden("You may only list your own bookings"))
			return
		}
		userID = requested
	}

	bookings, err := h.service.ListUpcoming(r.Context(), userID)
	if err != nil {
		h.writeErr(w, "ListUpcoming", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListUpcoming", "error", err)
	}
}

func (h *BookingHandler) ListForDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor := middleware.ActorFrom(r.Context())

	bookings, err := h.service.ListForDate(r.Context(), actor, ps.ByName("date"))
	if err != nil {
		h.writeErr(w, "ListForDate", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListForDate", "error", err)
	}
}

func (h *BookingHandler) writeErr(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/upcoming", h.ListUpcoming)
	router.GET("/api/v1/bookings/date/:date", h.ListForDate)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/move", h.Move)
	router.POST("/api/v1/bookings/id/:id/complete", h.Complete)
	router.PATCH("/api/v1/bookings/id/:id/notes", h.AddNotes)
}
