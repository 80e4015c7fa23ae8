package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// fakeSource records per-date occupancy and the hold cutoff it was
// queried with.
type fakeSource struct {
	occupied   map[string][]string // "busID|2006-01-02" -> seats
	lastCutoff time.Time
}

func (f *fakeSource) OccupiedSeats(_ context.Context, busID uint64, date time.Time, holdCutoff time.Time) ([]string, error) {
	f.lastCutoff = holdCutoff
	key := keyOf(busID, date)
	return f.occupied[key], nil
}

func keyOf(busID uint64, date time.Time) string {
	return fmt.Sprintf("%d|%s", busID, date.Format("2006-01-02"))
}

func testBus() *model.Bus {
	return &model.Bus{ID: 1, TotalSeats: 4, Status: model.BusStatusActive}
}

var (
	day1 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	now  = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
)

func TestAvailabilitySplitsSeats(t *testing.T) {
	src := &fakeSource{occupied: map[string][]string{
		keyOf(1, day1): {"S2", "S4"},
	}}
	l := New(src, 10*time.Minute)

	av, err := l.Availability(context.Background(), testBus(), day1, now)
	require.NoError(t, err)
	assert.Equal(t, 4, av.TotalSeats)
	assert.Equal(t, []string{"S1", "S3"}, av.AvailableSeats)
	assert.Equal(t, []string{"S2", "S4"}, av.BookedSeats)
	assert.Equal(t, "2026-06-01", av.JourneyDate)
}

func TestAvailabilityIsDateScoped(t *testing.T) {
	// Seats occupied on one date never affect another date.
	src := &fakeSource{occupied: map[string][]string{
		keyOf(1, day1): {"S1", "S2", "S3", "S4"},
	}}
	l := New(src, 10*time.Minute)

	av, err := l.Availability(context.Background(), testBus(), day2, now)
	require.NoError(t, err)
	assert.Len(t, av.AvailableSeats, 4)
	assert.Empty(t, av.BookedSeats)
}

func TestCheckAvailabilityConflictListsExactSeats(t *testing.T) {
	src := &fakeSource{occupied: map[string][]string{
		keyOf(1, day1): {"S2"},
	}}
	l := New(src, 10*time.Minute)

	err := l.CheckAvailability(context.Background(), testBus(), day1, []string{"S2", "S3"}, now)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"S2"}, conflict.Seats)
}

func TestCheckAvailabilityRejectsUnknownSeats(t *testing.T) {
	src := &fakeSource{occupied: map[string][]string{}}
	l := New(src, 10*time.Minute)

	err := l.CheckAvailability(context.Background(), testBus(), day1, []string{"S1", "S9", "S0"}, now)
	var invalid *InvalidSeatError
	require.ErrorAs(t, err, &invalid)
	assert.ElementsMatch(t, []string{"S9", "S0"}, invalid.Seats)
}

func TestCheckAvailabilityPasses(t *testing.T) {
	src := &fakeSource{occupied: map[string][]string{
		keyOf(1, day1): {"S4"},
	}}
	l := New(src, 10*time.Minute)

	err := l.CheckAvailability(context.Background(), testBus(), day1, []string{"S1", "S2"}, now)
	assert.NoError(t, err)
}

func TestHoldCutoffReflectsTTL(t *testing.T) {
	src := &fakeSource{occupied: map[string][]string{}}
	l := New(src, 15*time.Minute)

	_, err := l.Availability(context.Background(), testBus(), day1, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-15*time.Minute), src.lastCutoff)
}
