package domain

import "time"

// Restaurant Model
type Restaurant struct {
	ID            string    `gorm:"primaryKey;size:255" json:"id"`            // Client-supplied identifier
	Name          string    `gorm:"size:255;not null" json:"name"`            // Restaurant name
	AverageRating float64   `gorm:"not null;default:0" json:"average_rating"` // Mean rating of current reviews, 0 without reviews
	CreatedAt     time.Time `json:"created_at"`                               // Creation time
	UpdatedAt     time.Time `json:"updated_at"`                               // Last modification time
}

// RestaurantWithReviews is a restaurant joined with every review that references it
type RestaurantWithReviews struct {
	Restaurant
	Reviews []Review `json:"reviews"` // Always serialized, empty when there are no reviews
}
