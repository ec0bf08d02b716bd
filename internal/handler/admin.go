package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/session"
)

// AdminHandler lets the operator review incidents and the seat ledger.
type AdminHandler struct {
	Flow      *session.Controller
	Inventory *service.Inventory
}

func NewAdminHandler(flow *session.Controller, inv *service.Inventory) *AdminHandler {
	if flow == nil || inv == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Flow: flow, Inventory: inv}
}

type adminSeat struct {
	SeatID     string `json:"seat_id"`
	Section    string `json:"section"`
	Row        string `json:"row"`
	Col        int    `json:"col"`
	Status     string `json:"status"`
	StoredAs   string `json:"stored_status"`
	ReservedBy string `json:"reserved_by"`
	Contact    string `json:"contact"`
}

// Incidents lists incidents, newest first. ?open=true hides resolved ones.
func (h *AdminHandler) Incidents(c echo.Context) error {
	openOnly, _ := strconv.ParseBool(c.QueryParam("open"))
	items := h.Flow.Incidents(openOnly)
	if items == nil {
		items = []service.Incident{}
	}
	return c.JSON(http.StatusOK, echo.Map{"incidents": items})
}

// ResolveIncident marks :id resolved after the operator fixed the ledger by
// hand, and lifts the halt on the sessions waiting for it.
func (h *AdminHandler) ResolveIncident(c echo.Context) error {
	in, released, err := h.Flow.ResolveIncident(c.Param("id"))
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(http.StatusOK, echo.Map{"incident": in, "sessions_released": released})
}

// Seats returns every seat with holder details, read fresh from the ledger.
// ?section= narrows the list.
func (h *AdminHandler) Seats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	all, err := h.Inventory.ListFresh(ctx, service.SeatFilter{Section: c.QueryParam("section")})
	if err != nil {
		return respondError(c, err, nil)
	}
	seats := make([]adminSeat, 0, len(all))
	for _, s := range all {
		seats = append(seats, adminSeat{
			SeatID:     s.SeatID,
			Section:    s.Section,
			Row:        s.Row,
			Col:        s.Col,
			Status:     string(s.EffectiveStatus()),
			StoredAs:   s.StoredStatus,
			ReservedBy: s.ReservedBy,
			Contact:    s.ReservedContact,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}
