package domain

import "time"

// Rating bounds, inclusive
const (
	MinRating = 1
	MaxRating = 5
)

// Review Model
type Review struct {
	ID           uint        `gorm:"primaryKey" json:"id"`                                                                              // Primary key
	RestaurantID string      `gorm:"size:255;not null;index" json:"restaurant_id"`                                                      // Foreign key to Restaurant
	ReviewerID   uint        `gorm:"not null;index" json:"reviewer_id"`                                                                 // Foreign key to User
	Rating       int         `gorm:"not null" json:"rating"`                                                                            // 1..5
	Title        string      `gorm:"size:255;not null" json:"title"`                                                                    // Short headline
	Body         string      `gorm:"type:text;not null" json:"body"`                                                                    // Full review text
	CreatedAt    time.Time   `json:"created_at"`                                                                                        // Creation time
	UpdatedAt    time.Time   `json:"updated_at"`                                                                                        // Last modification time
	Restaurant   *Restaurant `gorm:"foreignKey:RestaurantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"restaurant,omitempty"` // Parent restaurant, set only when joined
	Reviewer     *User       `gorm:"foreignKey:ReviewerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`                      // Reviewer, used for the FK constraint only
}

// ValidRating reports whether r lies within the inclusive rating bounds
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// ReviewPatch carries the optional fields of a partial review update
type ReviewPatch struct {
	Rating *int    // New rating, nil to keep
	Title  *string // New title, nil to keep
	Body   *string // New body, nil to keep
}

// Empty reports whether the patch changes nothing
func (p ReviewPatch) Empty() bool {
	return p.Rating == nil && p.Title == nil && p.Body == nil
}

// Columns returns the column/value pairs the patch sets
func (p ReviewPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Rating != nil {
		cols["rating"] = *p.Rating
	}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Body != nil {
		cols["body"] = *p.Body
	}
	return cols
}
