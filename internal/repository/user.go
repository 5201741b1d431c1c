package repository

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping

	"restaurant_reviews/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// UserRepository is the credential store
type UserRepository interface {
	// Create inserts a new user, assigning its ID
	Create(ctx context.Context, user *domain.User) error
	// FindByEmail returns the user with exactly this email, or ErrNotFound
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByID returns the user with this ID, or ErrNotFound
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	// EmailTaken reports whether any user already uses this email
	EmailTaken(ctx context.Context, email string) (bool, error)
	// Exists reports whether a user with this ID exists
	Exists(ctx context.Context, id uint) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a GORM backed UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user %d: %w", id, err)
	}
	return count > 0, nil
}
