package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/session"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

const secret = "test-secret"

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

type app struct {
	e   *echo.Echo
	mem *ledger.MemoryStore
}

func newApp(t *testing.T) *app {
	t.Helper()
	mem := ledger.NewMemoryStore()
	wl := repository.NewWhitelistRepo(mem)
	seats := repository.NewSeatRepo(mem)
	incidents := service.NewIncidentLog(0)
	inv := service.NewInventory(seats, nil)
	booker := service.NewBooker(service.NewQuotaTracker(wl), inv, incidents, nil)
	flow := session.NewController(session.NewManager(time.Hour), service.NewResolver(wl, false), inv, booker, incidents, session.Gate{})

	hash, err := utils.HashPassword("letmein", bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{JWTSecret: secret, SessionTTL: time.Hour, AdminHash: hash}

	e := echo.New()
	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(cfg, flow), secret, passThrough)
	RegisterBooking(e, handler.NewBookingHandler(flow, inv), secret, passThrough)
	RegisterAdmin(e, handler.NewAdminHandler(flow, inv), secret)

	for _, row := range []map[string]string{
		{"Name": "Tan Mei/Tan Wei", "ReceiptNo": "SR-1001", "TicketsAllowed": "2", "TicketsUsed": "0", "Contact": "0123"},
	} {
		_, err := mem.Append(ledger.TableWhitelist, row)
		require.NoError(t, err)
	}
	for _, s := range []map[string]string{
		{"SeatID": "A1", "Section": "Stalls", "Row": "A", "Col": "1"},
		{"SeatID": "A2", "Section": "Stalls", "Row": "A", "Col": "2"},
		{"SeatID": "B1", "Section": "Balcony", "Row": "B", "Col": "1", "ReservedBy": "Someone", "PhoneNo": "0777"},
	} {
		_, err := mem.Append(ledger.TableSeats, s)
		require.NoError(t, err)
	}
	return &app{e: e, mem: mem}
}

func (a *app) do(t *testing.T, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (a *app) login(t *testing.T) string {
	t.Helper()
	code, body := a.do(t, http.MethodPost, "/v1/auth/login", "", `{"name":"tan mei","contact":"0123","receipt":"SR-1001"}`)
	require.Equal(t, http.StatusOK, code, body)
	access := body["access"].(map[string]interface{})
	return access["token"].(string)
}

func stage(body map[string]interface{}) string {
	if st, ok := body["state"].(map[string]interface{}); ok {
		return st["stage"].(string)
	}
	return body["stage"].(string)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBookingFlowOverHTTP(t *testing.T) {
	a := newApp(t)
	tok := a.login(t)

	code, body := a.do(t, http.MethodGet, "/v1/session", tok, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "terms_pending", stage(body))

	code, _ = a.do(t, http.MethodPost, "/v1/selection/A1", tok, "")
	assert.Equal(t, http.StatusConflict, code)

	code, body = a.do(t, http.MethodPost, "/v1/terms/accept", tok, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "selecting", stage(body))

	code, body = a.do(t, http.MethodGet, "/v1/seats?section=Stalls", tok, "")
	require.Equal(t, http.StatusOK, code)
	seats := body["seats"].([]interface{})
	require.Len(t, seats, 2)
	assert.Equal(t, "A2", seats[0].(map[string]interface{})["seat_id"])
	assert.Equal(t, []interface{}{"All Sections", "Balcony", "Stalls"}, body["sections"])

	code, body = a.do(t, http.MethodPost, "/v1/selection/B1", tok, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "seat_taken", body["error"])

	code, body = a.do(t, http.MethodPost, "/v1/selection/A1", tok, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["quota_left"])

	code, body = a.do(t, http.MethodPost, "/v1/confirm", tok, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, []interface{}{"A1"}, body["booked"])
	assert.Equal(t, float64(1), body["remaining"])
	assert.Contains(t, body["message"], "continue to book the rest")
	assert.Equal(t, "confirmed", stage(body))

	rows, err := a.mem.ReadTable(context.Background(), ledger.TableWhitelist)
	require.NoError(t, err)
	assert.Equal(t, "1", rows[0].Get(ledger.ColTicketsUsed))

	code, body = a.do(t, http.MethodPost, "/v1/change-seats", tok, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, []interface{}{"A1"}, body["freed"])
	assert.Equal(t, float64(2), body["remaining"])

	code, _ = a.do(t, http.MethodPost, "/v1/auth/logout", tok, "")
	assert.Equal(t, http.StatusNoContent, code)
	code, body = a.do(t, http.MethodGet, "/v1/session", tok, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "session_expired", body["error"])
}

func TestLoginFailures(t *testing.T) {
	a := newApp(t)

	code, body := a.do(t, http.MethodPost, "/v1/auth/login", "", `{"name":"tan mei","contact":"","receipt":"SR-1001"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "missing_details", body["error"])

	code, body = a.do(t, http.MethodPost, "/v1/auth/login", "", `{"name":"someone else","contact":"1","receipt":"SR-1001"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "not_whitelisted", body["error"])

	code, _ = a.do(t, http.MethodGet, "/v1/session", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestConfirmEmptySelection(t *testing.T) {
	a := newApp(t)
	tok := a.login(t)
	a.do(t, http.MethodPost, "/v1/terms/accept", tok, "")

	code, body := a.do(t, http.MethodPost, "/v1/confirm", tok, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "empty_selection", body["error"])
}

func TestAdminRoutes(t *testing.T) {
	a := newApp(t)
	buyer := a.login(t)

	code, _ := a.do(t, http.MethodGet, "/v1/admin/incidents", buyer, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(t, http.MethodPost, "/v1/admin/login", "", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := a.do(t, http.MethodPost, "/v1/admin/login", "", `{"password":"letmein"}`)
	require.Equal(t, http.StatusOK, code)
	admin := body["access"].(map[string]interface{})["token"].(string)

	code, body = a.do(t, http.MethodGet, "/v1/admin/incidents?open=true", admin, "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["incidents"])

	code, body = a.do(t, http.MethodPost, "/v1/admin/incidents/nope/resolve", admin, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "incident_not_found", body["error"])

	code, body = a.do(t, http.MethodGet, "/v1/admin/seats", admin, "")
	require.Equal(t, http.StatusOK, code)
	seats := body["seats"].([]interface{})
	require.Len(t, seats, 3)
	first := seats[0].(map[string]interface{})
	assert.Equal(t, "B1", first["seat_id"])
	assert.Equal(t, "0777", first["contact"])

	code, _ = a.do(t, http.MethodGet, "/v1/session", admin, "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRefreshReissuesBuyerToken(t *testing.T) {
	a := newApp(t)
	tok := a.login(t)

	code, body := a.do(t, http.MethodPost, "/v1/auth/refresh", tok, "")
	require.Equal(t, http.StatusOK, code, body)
	access := body["access"].(map[string]interface{})
	fresh := access["token"].(string)
	require.NotEmpty(t, fresh)
	assert.NotEmpty(t, access["expires"])
	assert.Equal(t, "terms_pending", stage(body))

	code, body = a.do(t, http.MethodGet, "/v1/session", fresh, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "terms_pending", stage(body))

	code, _ = a.do(t, http.MethodPost, "/v1/auth/logout", fresh, "")
	require.Equal(t, http.StatusNoContent, code)
	code, body = a.do(t, http.MethodPost, "/v1/auth/refresh", tok, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "session_expired", body["error"])
}
