package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// BusRepo provides data access to the buses table.  Bus records carry
// no per-date seat state; occupancy is derived from bookings by the
// seat ledger.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo returns a new BusRepo bound to the given database.
func NewBusRepo(db *sql.DB) *BusRepo { return &BusRepo{db: db} }

const busColumns = `id, bus_name, bus_number, bus_type, from_city, to_city,
	departure_time, arrival_time, duration, price_cents, total_seats,
	amenities, operating_days, status, created_at, updated_at`

// Create inserts a new bus and populates the generated ID.  A
// duplicate bus number is reported as ErrBusNumberTaken.
func (r *BusRepo) Create(ctx context.Context, b *model.Bus) error {
	const q = `INSERT INTO buses (bus_name, bus_number, bus_type, from_city, to_city,
		departure_time, arrival_time, duration, price_cents, total_seats,
		amenities, operating_days, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.BusName, b.BusNumber, b.BusType, b.FromCity, b.ToCity,
		b.DepartureTime, b.ArrivalTime, b.Duration, b.PriceCents, b.TotalSeats,
		joinList(b.Amenities), joinList(b.OperatingDays), b.Status,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrBusNumberTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns the bus with the given id or ErrBusNotFound.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+busColumns+` FROM buses WHERE id = ?`, id)
	return scanBus(row)
}

// BusFilter narrows List results.  Empty fields are ignored.  Status
// defaults to "active" when unset so public listings only show
// bookable services.
type BusFilter struct {
	From    string
	To      string
	BusType string
	Status  string
}

// List returns buses matching the filter, ordered by departure time.
func (r *BusRepo) List(ctx context.Context, f BusFilter) ([]model.Bus, error) {
	q := `SELECT ` + busColumns + ` FROM buses WHERE 1=1`
	args := make([]interface{}, 0, 4)
	if f.From != "" {
		q += ` AND from_city LIKE ?`
		args = append(args, "%"+f.From+"%")
	}
	if f.To != "" {
		q += ` AND to_city LIKE ?`
		args = append(args, "%"+f.To+"%")
	}
	if f.BusType != "" {
		q += ` AND bus_type = ?`
		args = append(args, f.BusType)
	}
	status := f.Status
	if status == "" {
		status = model.BusStatusActive
	}
	q += ` AND status = ? ORDER BY departure_time`
	args = append(args, status)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	buses := make([]model.Bus, 0)
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		buses = append(buses, *b)
	}
	return buses, rows.Err()
}

// Update overwrites the mutable fields of a bus.
func (r *BusRepo) Update(ctx context.Context, b *model.Bus) error {
	const q = `UPDATE buses SET bus_name = ?, bus_number = ?, bus_type = ?,
		from_city = ?, to_city = ?, departure_time = ?, arrival_time = ?,
		duration = ?, price_cents = ?, total_seats = ?, amenities = ?,
		operating_days = ?, status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		b.BusName, b.BusNumber, b.BusType, b.FromCity, b.ToCity,
		b.DepartureTime, b.ArrivalTime, b.Duration, b.PriceCents, b.TotalSeats,
		joinList(b.Amenities), joinList(b.OperatingDays), b.Status, b.ID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrBusNumberTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op
		// update; distinguish with an existence probe.
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM buses WHERE id = ?`, b.ID).Scan(&one); errors.Is(err, sql.ErrNoRows) {
			return ErrBusNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a bus.  Returns ErrBusNotFound when no row matched.
func (r *BusRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM buses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBusNotFound
	}
	return nil
}

// Routes returns the distinct origin and destination cities of active
// buses, each sorted alphabetically by the query.
func (r *BusRepo) Routes(ctx context.Context) (from []string, to []string, err error) {
	collect := func(column string) ([]string, error) {
		rows, err := r.db.QueryContext(ctx,
			`SELECT DISTINCT `+column+` FROM buses WHERE status = ? ORDER BY `+column,
			model.BusStatusActive,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := make([]string, 0)
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, rows.Err()
	}
	if from, err = collect("from_city"); err != nil {
		return nil, nil, err
	}
	if to, err = collect("to_city"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBus(row rowScanner) (*model.Bus, error) {
	var b model.Bus
	var amenities, days string
	err := row.Scan(
		&b.ID, &b.BusName, &b.BusNumber, &b.BusType, &b.FromCity, &b.ToCity,
		&b.DepartureTime, &b.ArrivalTime, &b.Duration, &b.PriceCents, &b.TotalSeats,
		&amenities, &days, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBusNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Amenities = splitList(amenities)
	b.OperatingDays = splitList(days)
	return &b, nil
}

// joinList serialises a string slice into the comma-joined column
// format.  Values themselves never contain commas (amenity and weekday
// names).
func joinList(items []string) string { return strings.Join(items, ",") }

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
