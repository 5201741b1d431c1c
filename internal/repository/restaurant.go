package repository

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping

	"restaurant_reviews/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// RestaurantRepository persists restaurants
type RestaurantRepository interface {
	// ListWithReviews returns every restaurant joined with its reviews
	ListWithReviews(ctx context.Context) ([]domain.RestaurantWithReviews, error)
	// GetWithReviews returns one restaurant joined with its reviews, or ErrNotFound
	GetWithReviews(ctx context.Context, id string) (*domain.RestaurantWithReviews, error)
	// Get returns one restaurant without its reviews, or ErrNotFound
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
	// Exists reports whether a restaurant with this ID exists
	Exists(ctx context.Context, id string) (bool, error)
	// Create inserts a restaurant with a zero average rating
	Create(ctx context.Context, restaurant *domain.Restaurant) error
	// UpdateName renames a restaurant, or returns ErrNotFound
	UpdateName(ctx context.Context, id, name string) (*domain.Restaurant, error)
	// Delete removes a restaurant and all of its reviews, or returns ErrNotFound
	Delete(ctx context.Context, id string) error
}

type restaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository creates a GORM backed RestaurantRepository
func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) ListWithReviews(ctx context.Context) ([]domain.RestaurantWithReviews, error) {
	var restaurants []domain.Restaurant
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	var reviews []domain.Review
	if err := r.db.WithContext(ctx).Order("id").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	byRestaurant := make(map[string][]domain.Review, len(restaurants))
	for _, rv := range reviews {
		byRestaurant[rv.RestaurantID] = append(byRestaurant[rv.RestaurantID], rv)
	}
	out := make([]domain.RestaurantWithReviews, len(restaurants))
	for i, rs := range restaurants {
		out[i] = withReviews(rs, byRestaurant[rs.ID])
	}
	return out, nil
}

func (r *restaurantRepository) GetWithReviews(ctx context.Context, id string) (*domain.RestaurantWithReviews, error) {
	var restaurant domain.Restaurant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&restaurant).Error; err != nil {
		return nil, notFound(err)
	}
	var reviews []domain.Review
	if err := r.db.WithContext(ctx).Where("restaurant_id = ?", id).Order("id").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews of restaurant %s: %w", id, err)
	}
	out := withReviews(restaurant, reviews)
	return &out, nil
}

func (r *restaurantRepository) Get(ctx context.Context, id string) (*domain.Restaurant, error) {
	var restaurant domain.Restaurant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&restaurant).Error; err != nil {
		return nil, notFound(err)
	}
	return &restaurant, nil
}

func (r *restaurantRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Restaurant{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check restaurant %s: %w", id, err)
	}
	return count > 0, nil
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *domain.Restaurant) error {
	restaurant.AverageRating = 0
	if err := r.db.WithContext(ctx).Create(restaurant).Error; err != nil {
		return fmt.Errorf("create restaurant %s: %w", restaurant.ID, err)
	}
	return nil
}

func (r *restaurantRepository) UpdateName(ctx context.Context, id, name string) (*domain.Restaurant, error) {
	var restaurant domain.Restaurant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&restaurant).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&domain.Restaurant{}).Where("id = ?", id).Update("name", name).Error; err != nil {
			return fmt.Errorf("rename restaurant %s: %w", id, err)
		}
		return tx.Where("id = ?", id).First(&restaurant).Error
	})
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var restaurant domain.Restaurant
		if err := tx.Where("id = ?", id).First(&restaurant).Error; err != nil {
			return notFound(err)
		}
		// Explicit cascade so it does not depend on the driver enforcing the FK
		if err := tx.Where("restaurant_id = ?", id).Delete(&domain.Review{}).Error; err != nil {
			return fmt.Errorf("delete reviews of restaurant %s: %w", id, err)
		}
		if err := tx.Delete(&restaurant).Error; err != nil {
			return fmt.Errorf("delete restaurant %s: %w", id, err)
		}
		return nil
	})
}

func withReviews(restaurant domain.Restaurant, reviews []domain.Review) domain.RestaurantWithReviews {
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return domain.RestaurantWithReviews{Restaurant: restaurant, Reviews: reviews}
}
