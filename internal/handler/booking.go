package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/session"
)

// BookingHandler serves the buyer flow: state, terms, seat grid, selection,
// confirm and change-seats. Every route runs behind JWTAuth.
type BookingHandler struct {
	Flow      *session.Controller
	Inventory *service.Inventory
}

func NewBookingHandler(flow *session.Controller, inv *service.Inventory) *BookingHandler {
	if flow == nil || inv == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Flow: flow, Inventory: inv}
}

// seatView is one grid cell as a buyer sees it. Holder details of other
// buyers are not exposed.
type seatView struct {
	SeatID   string           `json:"seat_id"`
	Section  string           `json:"section"`
	Row      string           `json:"row"`
	Col      int              `json:"col"`
	Status   model.SeatStatus `json:"status"`
	Mine     bool             `json:"mine"`
	Selected bool             `json:"selected"`
}

type seatsResp struct {
	Section  string       `json:"section"`
	Sections []string     `json:"sections"`
	Seats    []seatView   `json:"seats"`
	State    session.View `json:"state"`
}

type confirmResp struct {
	State     session.View `json:"state"`
	Booked    []string     `json:"booked"`
	Failed    []string     `json:"failed"`
	Remaining int          `json:"remaining"`
	Message   string       `json:"message"`
}

type changeResp struct {
	State     session.View `json:"state"`
	Freed     []string     `json:"freed"`
	Remaining int          `json:"remaining"`
	Message   string       `json:"message"`
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// stateOrNil keeps the view out of error bodies when there is no session.
func stateOrNil(v session.View) *session.View {
	if v.SessionID == "" {
		return nil
	}
	return &v
}

// State re-reads the quota and returns the session view.
func (h *BookingHandler) State(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	v, err := h.Flow.State(ctx, middleware.Subject(c))
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *BookingHandler) AcceptTerms(c echo.Context) error {
	v, err := h.Flow.AcceptTerms(middleware.Subject(c))
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(http.StatusOK, v)
}

// Seats returns the grid for ?section= (all sections when empty) along with
// the section list. Reads may be served from the display cache.
func (h *BookingHandler) Seats(c echo.Context) error {
	v, err := h.Flow.Peek(middleware.Subject(c))
	if err != nil {
		return respondError(c, err, nil)
	}
	section := strings.TrimSpace(c.QueryParam("section"))
	if section == "" {
		section = service.AllSections
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	seats, err := h.Inventory.List(ctx, service.SeatFilter{Section: section})
	if err != nil {
		return respondError(c, err, &v)
	}
	sections, err := h.Inventory.Sections(ctx)
	if err != nil {
		return respondError(c, err, &v)
	}

	selected := make(map[string]bool, len(v.SelectedSeats))
	for _, id := range v.SelectedSeats {
		selected[id] = true
	}
	out := make([]seatView, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatView{
			SeatID:   s.SeatID,
			Section:  s.Section,
			Row:      s.Row,
			Col:      s.Col,
			Status:   s.EffectiveStatus(),
			Mine:     s.ReservedBy != "" && s.ReservedBy == v.BuyerName,
			Selected: selected[s.SeatID],
		})
	}
	return c.JSON(http.StatusOK, seatsResp{
		Section:  section,
		Sections: append([]string{service.AllSections}, sections...),
		Seats:    out,
		State:    v,
	})
}

// Toggle adds or removes :seat_id from the selection.
func (h *BookingHandler) Toggle(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	v, err := h.Flow.Toggle(ctx, middleware.Subject(c), c.Param("seat_id"))
	if err != nil {
		return respondError(c, err, stateOrNil(v))
	}
	return c.JSON(http.StatusOK, v)
}

// Reconsider clears the selection.
func (h *BookingHandler) Reconsider(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	v, err := h.Flow.Reconsider(ctx, middleware.Subject(c))
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(http.StatusOK, v)
}

// Confirm books the selection. Seats lost to other buyers are reported in
// failed; the rest stay booked.
func (h *BookingHandler) Confirm(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	v, res, err := h.Flow.Confirm(ctx, middleware.Subject(c))
	if err != nil {
		if errors.Is(err, service.ErrNothingBooked) {
			ae := classify(err)
			return c.JSON(ae.Status, echo.Map{
				"error":   ae.Code,
				"message": ae.Message,
				"failed":  nonNil(res.Failed),
				"state":   v,
			})
		}
		return respondError(c, err, stateOrNil(v))
	}
	return c.JSON(http.StatusOK, confirmResp{
		State:     v,
		Booked:    nonNil(res.Succeeded),
		Failed:    nonNil(res.Failed),
		Remaining: max(0, res.Remaining),
		Message:   confirmMessage(res, v.Unlimited),
	})
}

// ChangeSeats frees every seat the buyer holds and refunds the tickets.
func (h *BookingHandler) ChangeSeats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	v, res, err := h.Flow.ChangeSeats(ctx, middleware.Subject(c))
	if err != nil {
		return respondError(c, err, stateOrNil(v))
	}
	msg := "You had no seats to release. Pick your seats."
	if len(res.Freed) > 0 {
		msg = fmt.Sprintf("Released %s. Pick your seats again.", strings.Join(res.Freed, ", "))
	}
	return c.JSON(http.StatusOK, changeResp{
		State:     v,
		Freed:     nonNil(res.Freed),
		Remaining: max(0, res.Remaining),
		Message:   msg,
	})
}

func confirmMessage(res service.ConfirmResult, unlimited bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Booked %s.", strings.Join(res.Succeeded, ", "))
	if len(res.Failed) > 0 {
		fmt.Fprintf(&b, " These seats were taken by someone else: %s.", strings.Join(res.Failed, ", "))
	}
	switch {
	case unlimited || res.Remaining > 0:
		b.WriteString(" You may continue to book the rest of your tickets.")
	default:
		b.WriteString(" All your tickets are now used.")
	}
	return b.String()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
