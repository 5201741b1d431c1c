package repository

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping

	"restaurant_reviews/internal/domain" // Domain models
	"restaurant_reviews/internal/rating" // Average rating maintenance

	"gorm.io/gorm" // GORM ORM library
)

// ReviewRepository persists reviews and keeps restaurant averages current
type ReviewRepository interface {
	// ListWithRestaurant returns every review joined with its restaurant
	ListWithRestaurant(ctx context.Context) ([]domain.Review, error)
	// GetWithRestaurant returns one review joined with its restaurant, or ErrNotFound
	GetWithRestaurant(ctx context.Context, id uint) (*domain.Review, error)
	// ListByReviewerWithRestaurant returns the reviews written by one user
	ListByReviewerWithRestaurant(ctx context.Context, reviewerID uint) ([]domain.Review, error)
	// Create inserts a review and recomputes its restaurant's average
	Create(ctx context.Context, review *domain.Review) error
	// Update applies a partial update and recomputes the average, or returns ErrNotFound
	Update(ctx context.Context, id uint, patch domain.ReviewPatch) (*domain.Review, error)
	// Delete removes a review and recomputes the average, or returns ErrNotFound.
	// It returns the ID of the restaurant the review belonged to.
	Delete(ctx context.Context, id uint) (string, error)
}

type reviewRepository struct {
	db         *gorm.DB
	aggregator *rating.Aggregator
}

// NewReviewRepository creates a GORM backed ReviewRepository
func NewReviewRepository(db *gorm.DB, aggregator *rating.Aggregator) ReviewRepository {
	return &reviewRepository{db: db, aggregator: aggregator}
}

func (r *reviewRepository) ListWithRestaurant(ctx context.Context) ([]domain.Review, error) {
	var reviews []domain.Review
	if err := r.db.WithContext(ctx).Preload("Restaurant").Order("id").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return nonNil(reviews), nil
}

func (r *reviewRepository) GetWithRestaurant(ctx context.Context, id uint) (*domain.Review, error) {
	var review domain.Review
	if err := r.db.WithContext(ctx).Preload("Restaurant").First(&review, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &review, nil
}

func (r *reviewRepository) ListByReviewerWithRestaurant(ctx context.Context, reviewerID uint) ([]domain.Review, error) {
	var reviews []domain.Review
	err := r.db.WithContext(ctx).
		Preload("Restaurant").
		Where("reviewer_id = ?", reviewerID).
		Order("id").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("list reviews of reviewer %d: %w", reviewerID, err)
	}
	return nonNil(reviews), nil
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if !domain.ValidRating(review.Rating) {
		return ErrRatingOutOfRange
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Restaurant", "Reviewer").Create(review).Error; err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		_, err := r.aggregator.Recompute(ctx, tx, review.RestaurantID)
		return err
	})
}

func (r *reviewRepository) Update(ctx context.Context, id uint, patch domain.ReviewPatch) (*domain.Review, error) {
	if patch.Rating != nil && !domain.ValidRating(*patch.Rating) {
		return nil, ErrRatingOutOfRange
	}
	var review domain.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, id).Error; err != nil {
			return notFound(err)
		}
		if patch.Empty() {
			return nil
		}
		if err := tx.Model(&domain.Review{}).Where("id = ?", id).Updates(patch.Columns()).Error; err != nil {
			return fmt.Errorf("update review %d: %w", id, err)
		}
		if _, err := r.aggregator.Recompute(ctx, tx, review.RestaurantID); err != nil {
			return err
		}
		return tx.First(&review, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) (string, error) {
	var restaurantID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review domain.Review
		if err := tx.First(&review, id).Error; err != nil {
			return notFound(err)
		}
		restaurantID = review.RestaurantID
		if err := tx.Delete(&review).Error; err != nil {
			return fmt.Errorf("delete review %d: %w", id, err)
		}
		_, err := r.aggregator.Recompute(ctx, tx, restaurantID)
		return err
	})
	if err != nil {
		return "", err
	}
	return restaurantID, nil
}

func nonNil(reviews []domain.Review) []domain.Review {
	if reviews == nil {
		return []domain.Review{}
	}
	return reviews
}
