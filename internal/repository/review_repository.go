package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ReviewRepo provides data access to the reviews table.  The average
// rating of a bus is never stored on the bus row; it is recomputed by
// RatingSummary whenever it is needed.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts a review.  The unique (user_id, bus_id) key rejects a
// second review from the same user, reported as ErrDuplicateReview.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	const q = `INSERT INTO reviews (user_id, bus_id, rating, comment) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rv.UserID, rv.BusID, rv.Rating, rv.Comment)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReview
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// ListByBus returns the reviews for a bus with reviewer names resolved,
// newest first.
func (r *ReviewRepo) ListByBus(ctx context.Context, busID uint64) ([]model.Review, error) {
	const q = `SELECT r.id, r.user_id, r.bus_id, r.rating, r.comment, r.created_at, u.name
		FROM reviews r JOIN users u ON u.id = r.user_id
		WHERE r.bus_id = ? ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, busID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reviews := make([]model.Review, 0)
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.BusID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UserName); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// RatingSummary aggregates the average rating and review count for a
// bus.  A bus with no reviews yields a zero summary.
func (r *ReviewRepo) RatingSummary(ctx context.Context, busID uint64) (model.RatingSummary, error) {
	var s model.RatingSummary
	const q = `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE bus_id = ?`
	err := r.db.QueryRowContext(ctx, q, busID).Scan(&s.AverageRating, &s.TotalReviews)
	return s, err
}
