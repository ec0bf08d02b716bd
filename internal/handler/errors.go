package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/session"
)

// apiError is the status, machine code and buyer-facing text for an error.
type apiError struct {
	Status  int
	Code    string
	Message string
}

// classify maps core errors to responses. Partial commits are checked
// before store failures because they usually wrap one.
func classify(err error) apiError {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return apiError{http.StatusUnauthorized, "session_expired", "Your session has expired. Please log in again."}
	case errors.Is(err, session.ErrMissingDetails):
		return apiError{http.StatusBadRequest, "missing_details", "Please enter your name, contact number and receipt number."}
	case errors.Is(err, service.ErrNotFound):
		return apiError{http.StatusUnauthorized, "not_whitelisted", "We could not find that name and receipt number. Check your receipt or contact the organiser."}
	case errors.Is(err, service.ErrSessionHalted):
		return apiError{http.StatusLocked, "session_halted", "Your booking needs attention from the organiser. Please contact them and quote your incident id."}
	case errors.Is(err, service.ErrPartialCommit):
		return apiError{http.StatusInternalServerError, "partial_commit", "Your seats were updated but your ticket count was not. The organiser has been alerted; please contact them and quote your incident id."}
	case errors.Is(err, service.ErrStoreUnavailable):
		return apiError{http.StatusServiceUnavailable, "store_unavailable", "The booking sheet could not be reached. Please contact the organiser and quote your incident id."}
	case errors.Is(err, session.ErrWrongStage):
		return apiError{http.StatusConflict, "wrong_stage", err.Error()}
	case errors.Is(err, session.ErrSelectionFull):
		return apiError{http.StatusConflict, "selection_full", "You have already selected as many seats as you have tickets."}
	case errors.Is(err, service.ErrSeatTaken):
		return apiError{http.StatusConflict, "seat_taken", "That seat has just been taken. Please pick another one."}
	case errors.Is(err, service.ErrSeatNotFound):
		return apiError{http.StatusNotFound, "seat_not_found", "That seat does not exist."}
	case errors.Is(err, service.ErrQuotaExceeded):
		return apiError{http.StatusConflict, "quota_exceeded", "You selected more seats than you have tickets left. Remove some seats and try again."}
	case errors.Is(err, service.ErrNothingBooked):
		return apiError{http.StatusConflict, "nothing_booked", "None of your seats could be booked because they were taken. Please pick again."}
	case errors.Is(err, service.ErrEmptySelection):
		return apiError{http.StatusBadRequest, "empty_selection", "Select at least one seat first."}
	case errors.Is(err, service.ErrInvalidHolder):
		return apiError{http.StatusBadRequest, "invalid_holder", "Your name and contact number are required to book."}
	case errors.Is(err, service.ErrIncidentNotFound):
		return apiError{http.StatusNotFound, "incident_not_found", "incident not found"}
	}
	return apiError{http.StatusInternalServerError, "internal", "Something went wrong. Please try again."}
}

// respondError writes err as JSON. When state is non-nil the session view
// is included so the client can redraw without another request.
func respondError(c echo.Context, err error, state *session.View) error {
	ae := classify(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Printf("http: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	body := echo.Map{"error": ae.Code, "message": ae.Message}
	if state != nil && state.SessionID != "" {
		body["state"] = state
		if state.IncidentID != "" {
			body["incident_id"] = state.IncidentID
		}
	}
	return c.JSON(ae.Status, body)
}
