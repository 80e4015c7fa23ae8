package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// OfferRepo provides data access to the offers table.  Route and bus
// scopes are stored as JSON arrays; an empty array means the offer
// applies everywhere.
type OfferRepo struct {
	db *sql.DB
}

// NewOfferRepo returns a new OfferRepo bound to the given database.
func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{db: db} }

const offerColumns = `id, code, title, description, discount_type, discount_value,
	max_discount_cents, min_booking_amount_cents, valid_from, valid_till,
	usage_limit, user_usage_limit, applicable_routes, applicable_buses,
	is_active, terms_and_conditions, created_by, created_at, updated_at`

// Create inserts a new offer and populates the generated ID.  The code
// is stored uppercase; a duplicate is reported as ErrOfferCodeTaken.
func (r *OfferRepo) Create(ctx context.Context, o *model.Offer) error {
	routes, buses, err := marshalScopes(o)
	if err != nil {
		return err
	}
	const q = `INSERT INTO offers (code, title, description, discount_type, discount_value,
		max_discount_cents, min_booking_amount_cents, valid_from, valid_till,
		usage_limit, user_usage_limit, applicable_routes, applicable_buses,
		is_active, terms_and_conditions, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		strings.ToUpper(o.Code), o.Title, o.Description, o.DiscountType, o.DiscountValue,
		o.MaxDiscountCents, o.MinBookingAmountCents, o.ValidFrom.UTC(), o.ValidTill.UTC(),
		o.UsageLimit, o.UserUsageLimit, routes, buses,
		o.IsActive, o.TermsAndConditions, o.CreatedBy,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrOfferCodeTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// GetByID returns the offer with the given id or ErrOfferNotFound.
func (r *OfferRepo) GetByID(ctx context.Context, id uint64) (*model.Offer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id)
	return scanOffer(row)
}

// GetByCode returns the offer with the given code, matched
// case-insensitively against the uppercase stored form.
func (r *OfferRepo) GetByCode(ctx context.Context, code string) (*model.Offer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE code = ?`, strings.ToUpper(code))
	return scanOffer(row)
}

// ListActive returns offers that are active and inside their validity
// window at the given instant, for the public listing.
func (r *OfferRepo) ListActive(ctx context.Context, now time.Time) ([]model.Offer, error) {
	const q = `SELECT ` + offerColumns + ` FROM offers
		WHERE is_active = 1 AND valid_from <= ? AND valid_till >= ?
		ORDER BY valid_till`
	return r.list(ctx, q, now.UTC(), now.UTC())
}

// ListAll returns every offer, newest first, for the admin listing.
func (r *OfferRepo) ListAll(ctx context.Context) ([]model.Offer, error) {
	return r.list(ctx, `SELECT `+offerColumns+` FROM offers ORDER BY created_at DESC`)
}

// Update overwrites the mutable fields of an offer.  The code itself is
// immutable once created, so bookings referencing it stay resolvable.
func (r *OfferRepo) Update(ctx context.Context, o *model.Offer) error {
	routes, buses, err := marshalScopes(o)
	if err != nil {
		return err
	}
	const q = `UPDATE offers SET title = ?, description = ?, discount_type = ?,
		discount_value = ?, max_discount_cents = ?, min_booking_amount_cents = ?,
		valid_from = ?, valid_till = ?, usage_limit = ?, user_usage_limit = ?,
		applicable_routes = ?, applicable_buses = ?, is_active = ?,
		terms_and_conditions = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		o.Title, o.Description, o.DiscountType,
		o.DiscountValue, o.MaxDiscountCents, o.MinBookingAmountCents,
		o.ValidFrom.UTC(), o.ValidTill.UTC(), o.UsageLimit, o.UserUsageLimit,
		routes, buses, o.IsActive, o.TermsAndConditions, o.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM offers WHERE id = ?`, o.ID).Scan(&one); errors.Is(err, sql.ErrNoRows) {
			return ErrOfferNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Deactivate flips an offer inactive without deleting it, preserving
// the history of bookings that used the code.
func (r *OfferRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE offers SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM offers WHERE id = ?`, id).Scan(&one); errors.Is(err, sql.ErrNoRows) {
			return ErrOfferNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r *OfferRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Offer, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	offers := make([]model.Offer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

func marshalScopes(o *model.Offer) (routes, buses []byte, err error) {
	r := o.ApplicableRoutes
	if r == nil {
		r = []model.Route{}
	}
	b := o.ApplicableBuses
	if b == nil {
		b = []uint64{}
	}
	if routes, err = json.Marshal(r); err != nil {
		return nil, nil, err
	}
	if buses, err = json.Marshal(b); err != nil {
		return nil, nil, err
	}
	return routes, buses, nil
}

func scanOffer(row rowScanner) (*model.Offer, error) {
	var o model.Offer
	var routes, buses []byte
	err := row.Scan(
		&o.ID, &o.Code, &o.Title, &o.Description, &o.DiscountType, &o.DiscountValue,
		&o.MaxDiscountCents, &o.MinBookingAmountCents, &o.ValidFrom, &o.ValidTill,
		&o.UsageLimit, &o.UserUsageLimit, &routes, &buses,
		&o.IsActive, &o.TermsAndConditions, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(routes, &o.ApplicableRoutes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(buses, &o.ApplicableBuses); err != nil {
		return nil, err
	}
	return &o, nil
}
