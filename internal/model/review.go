package model

import "time"

// Review is a rating left by a user for a bus.  One review per
// (user, bus) pair; duplicates are rejected as conflicts.
type Review struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	BusID     uint64    `json:"bus_id"`
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	UserName string `json:"user_name,omitempty"`
}

// RatingSummary is the aggregate rating for a bus, recomputed from the
// review rows rather than incrementally maintained.
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int64   `json:"total_reviews"`
}
