package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/draftea/booking-system/booking-service/application"
	"github.com/draftea/booking-system/booking-service/domain"
	"github.com/draftea/booking-system/shared/logging"
	"github.com/draftea/booking-system/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

// Sweeper runs one recovery sweep
type Sweeper interface {
	Execute(ctx context.Context) (*application.SweepResult, error)
}

// BookingHandlers contains booking HTTP handlers
type BookingHandlers struct {
	createBooking *application.CreateBooking
	getBooking    *application.GetBooking
	sweeper       Sweeper
	logger        *zap.Logger

	sweeps sync.WaitGroup
}

// NewBookingHandlers creates new booking handlers
func NewBookingHandlers(
	createBooking *application.CreateBooking,
	getBooking *application.GetBooking,
	sweeper Sweeper,
	logger *zap.Logger,
) *BookingHandlers {
	return &BookingHandlers{
		createBooking: createBooking,
		getBooking:    getBooking,
		sweeper:       sweeper,
		logger:        logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// CreateBooking handles booking creation requests
func (h *BookingHandlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateBookingCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	response, err := h.createBooking.Execute(r.Context(), &cmd)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

// GetBooking handles booking retrieval requests
func (h *BookingHandlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Booking id must be an integer"})
		return
	}

	response, err := h.getBooking.Execute(r.Context(), &application.GetBookingQuery{BookingID: id})
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// SweepPendingBookings acknowledges the request and runs the sweep in the background
func (h *BookingHandlers) SweepPendingBookings(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	detached := logging.WithLogger(context.Background(), logger)
	if tel := telemetry.FromContext(r.Context()); tel != nil {
		detached = telemetry.WithTelemetry(detached, tel)
	}

	h.sweeps.Add(1)
	go func() {
		defer h.sweeps.Done()

		ctx, cancel := context.WithTimeout(detached, sweepTimeout)
		defer cancel()

		if _, err := h.sweeper.Execute(ctx); err != nil {
			logger.Error("requested sweep failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, messageResponse{Message: "Recovery of pending bookings started"})
}

// WaitForSweeps blocks until background sweeps started over HTTP have finished
func (h *BookingHandlers) WaitForSweeps() {
	h.sweeps.Wait()
}

// RegisterRoutes registers booking routes
func (h *BookingHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Post("/sweep", h.SweepPendingBookings)
		r.Get("/unprocessed", h.SweepPendingBookings)
		r.Get("/{id}", h.GetBooking)
	})
}

func (h *BookingHandlers) writeError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Booking not found"})
	case errors.Is(err, domain.ErrInvalidBooking):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logging.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
