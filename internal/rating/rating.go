// Package rating maintains the derived average_rating of restaurants.
//
// The average is always recomputed from the reviews that currently reference
// a restaurant, never adjusted incrementally, so a recompute after any review
// mutation restores the invariant regardless of what was there before.
package rating

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping

	"restaurant_reviews/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// Summary is the aggregate of the ratings referencing one restaurant
type Summary struct {
	Count int64 `gorm:"column:review_count"` // Number of reviews
	Total int64 `gorm:"column:rating_total"` // Sum of their ratings
}

// Average returns the arithmetic mean, or 0 when there are no reviews
func (s Summary) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Total) / float64(s.Count)
}

// Aggregator recomputes and persists restaurant averages
type Aggregator struct{}

// NewAggregator creates an Aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Summarize reads the current review aggregate for a restaurant through tx
func (a *Aggregator) Summarize(ctx context.Context, tx *gorm.DB, restaurantID string) (Summary, error) {
	var s Summary
	err := tx.WithContext(ctx).
		Model(&domain.Review{}).
		Select("COUNT(*) AS review_count, COALESCE(SUM(rating), 0) AS rating_total").
		Where("restaurant_id = ?", restaurantID).
		Scan(&s).Error
	if err != nil {
		return Summary{}, fmt.Errorf("summarize ratings for restaurant %s: %w", restaurantID, err)
	}
	return s, nil
}

// Recompute sets average_rating of the restaurant to the mean of its reviews.
// It must run on the same transaction as the review mutation that triggered it
// so the read sees the post-mutation state.
func (a *Aggregator) Recompute(ctx context.Context, tx *gorm.DB, restaurantID string) (float64, error) {
	s, err := a.Summarize(ctx, tx, restaurantID)
	if err != nil {
		return 0, err
	}
	avg := s.Average()
	err = tx.WithContext(ctx).
		Model(&domain.Restaurant{}).
		Where("id = ?", restaurantID).
		Update("average_rating", avg).Error
	if err != nil {
		return 0, fmt.Errorf("store average rating for restaurant %s: %w", restaurantID, err)
	}
	return avg, nil
}
