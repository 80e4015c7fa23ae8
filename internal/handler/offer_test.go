package handler

import (
	"database/sql"
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

func offerRows(code string, active bool, from, till time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "code", "title", "description", "discount_type", "discount_value",
		"max_discount_cents", "min_booking_amount_cents", "valid_from", "valid_till",
		"usage_limit", "user_usage_limit", "applicable_routes", "applicable_buses",
		"is_active", "terms_and_conditions", "created_by", "created_at", "updated_at",
	}).AddRow(1, code, "Save 10%", "", "percentage", 10,
		10000, 0, from, till,
		0, 0, []byte("[]"), []byte("[]"),
		active, "", 1, from, from)
}

func getOfferByCode(t *testing.T, db *sql.DB, code string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewOfferHandler(repository.NewOfferRepo(db), nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/offers/:code")
	c.SetParamNames("code")
	c.SetParamValues(code)
	require.NoError(t, h.GetByCode(c))
	return rec
}

func TestOfferGetByCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM offers WHERE code = ?")).
		WithArgs("SAVE10").
		WillReturnRows(offerRows("SAVE10", true, now.Add(-time.Hour), now.Add(time.Hour)))

	// Lookup is case-insensitive against the uppercase stored form.
	rec := getOfferByCode(t, db, "save10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SAVE10")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferGetByCodeExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM offers WHERE code = ?")).
		WithArgs("OLD50").
		WillReturnRows(offerRows("OLD50", true, now.Add(-48*time.Hour), now.Add(-time.Hour)))

	rec := getOfferByCode(t, db, "OLD50")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), KindNotFound)
}

func TestOfferGetByCodeInactive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM offers WHERE code = ?")).
		WithArgs("PAUSED").
		WillReturnRows(offerRows("PAUSED", false, now.Add(-time.Hour), now.Add(time.Hour)))

	rec := getOfferByCode(t, db, "PAUSED")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOfferGetByCodeUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM offers WHERE code = ?")).
		WithArgs("NOPE").
		WillReturnError(sql.ErrNoRows)

	rec := getOfferByCode(t, db, "NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
