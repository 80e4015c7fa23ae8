package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

func busRows() *sqlmock.Rows {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "bus_name", "bus_number", "bus_type", "from_city", "to_city",
		"departure_time", "arrival_time", "duration", "price_cents", "total_seats",
		"amenities", "operating_days", "status", "created_at", "updated_at",
	}).AddRow(1, "Shivneri Express", "MH12AB1234", "AC Seater", "Mumbai", "Pune",
		"08:00", "12:00", "4h 0m", 50000, 40, "WiFi,Water", "Mon,Tue,Wed", "active", now, now)
}

func TestBusSearchRequiresRoute(t *testing.T) {
	h := NewBusHandler(nil, nil, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?from=Mumbai", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Search(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), KindValidation)
}

func TestBusSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	h := NewBusHandler(repository.NewBusRepo(db), nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM buses WHERE 1=1 AND from_city LIKE ? AND to_city LIKE ?")).
		WithArgs("%Mumbai%", "%Pune%", "active").
		WillReturnRows(busRows())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?from=Mumbai&to=Pune", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Search(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Shivneri Express")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusListStatusFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	h := NewBusHandler(repository.NewBusRepo(db), nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM buses WHERE 1=1 AND status = ?")).
		WithArgs("maintenance").
		WillReturnRows(busRows())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?status=maintenance", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.List(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
