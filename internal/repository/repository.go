// Package repository persists users, restaurants and reviews with GORM.
//
// Each repository states the joins it performs; nothing is eager loaded
// implicitly. Review mutations run in a transaction together with the
// recompute of the parent restaurant's average rating.
package repository

import (
	"errors" // Sentinel errors

	"gorm.io/gorm" // GORM ORM library
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrRatingOutOfRange is returned for a rating outside domain.MinRating..domain.MaxRating
	ErrRatingOutOfRange = errors.New("rating out of range")
)

// notFound maps gorm's missing-row error onto ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
