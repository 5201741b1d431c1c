package domain

import "time"

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                       // Primary key
	Name      string    `gorm:"size:255;not null" json:"name"`              // Display name
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"` // Unique login email, case-sensitive as stored
	Password  string    `gorm:"not null" json:"-"`                          // bcrypt hash, never serialized
	CreatedAt time.Time `json:"created_at"`                                 // Registration time
	UpdatedAt time.Time `json:"updated_at"`                                 // Last modification time
}
