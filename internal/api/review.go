package api

import (
	"context"  // Request scoped lookups
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing
	"strings"  // String manipulation

	"restaurant_reviews/internal/domain"     // Importing domain models
	"restaurant_reviews/internal/middleware" // Authenticated caller lookup
	"restaurant_reviews/internal/repository" // Review storage
	"restaurant_reviews/internal/response"   // Uniform error bodies

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM error values
)

const (
	msgReviewNotFound    = "Review not found"
	msgInvalidReviewer   = "Invalid reviewer ID"
	msgUnknownRestaurant = "The selected restaurant id is invalid."
	msgUnknownReviewer   = "The selected reviewer id is invalid."
	msgRatingRange       = "The rating field must be between 1 and 5."
	mutationCreate       = "create"
	mutationUpdate       = "update"
	mutationDelete       = "delete"
)

// MutationRecorder counts review writes
type MutationRecorder interface {
	ReviewMutated(kind string)
}

// CreateReviewRequest represents a review creation request
type CreateReviewRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"required"`      // Existing restaurant
	ReviewerID   *uint  `json:"reviewer_id" validate:"required"`        // Existing user
	Rating       *int   `json:"rating" validate:"required,min=1,max=5"` // 1..5
	Title        string `json:"title" validate:"required,max=255"`      // Short headline
	Body         string `json:"body" validate:"required"`               // Full text
}

func (r *CreateReviewRequest) trim() {
	r.RestaurantID = strings.TrimSpace(r.RestaurantID)
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
}

// UpdateReviewRequest represents a partial review update; every field is optional
type UpdateReviewRequest struct {
	Rating *int    `json:"rating" validate:"omitnil,min=1,max=5"`   // New rating
	Title  *string `json:"title" validate:"omitnil,filled,max=255"` // New headline
	Body   *string `json:"body" validate:"omitnil,filled"`          // New text
}

func (r *UpdateReviewRequest) trim() {
	trimPtr(r.Title)
	trimPtr(r.Body)
}

func (r *UpdateReviewRequest) patch() domain.ReviewPatch {
	return domain.ReviewPatch{Rating: r.Rating, Title: r.Title, Body: r.Body}
}

// ListReviewsHandler returns every review with its restaurant
func ListReviewsHandler(reviews repository.ReviewRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := reviews.ListWithRestaurant(c.Request.Context())
		if err != nil {
			internalError(c, "Listing reviews failed", err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetReviewHandler returns one review with its restaurant
func GetReviewHandler(reviews repository.ReviewRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := reviewID(c)
		if !ok {
			return
		}
		review, err := reviews.GetWithRestaurant(c.Request.Context(), id)
		if err != nil {
			reviewError(c, "Fetching review failed", err)
			return
		}
		c.JSON(http.StatusOK, review)
	}
}

// ListReviewsByReviewerHandler returns the reviews written by one existing user
func ListReviewsByReviewerHandler(reviews repository.ReviewRepository, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		invalid := func() {
			response.Validation(c, msgInvalidReviewer, Violations{"reviewer_id": {msgUnknownReviewer}})
		}
		reviewerID, err := strconv.ParseUint(c.Param("reviewerId"), 10, 0)
		if err != nil {
			invalid()
			return
		}
		reviewer, err := users.FindByID(c.Request.Context(), uint(reviewerID))
		switch {
		case errors.Is(err, repository.ErrNotFound):
			invalid()
			return
		case err != nil:
			internalError(c, "Reviewer lookup failed", err)
			return
		}
		list, err := reviews.ListByReviewerWithRestaurant(c.Request.Context(), reviewer.ID)
		if err != nil {
			internalError(c, "Listing reviewer reviews failed", err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// CreateReviewHandler creates a review and refreshes its restaurant's average rating
func CreateReviewHandler(reviews repository.ReviewRepository, restaurants repository.RestaurantRepository, users repository.UserRepository, recorder MutationRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReviewRequest // Bind JSON request to struct
		violations := bindJSON(c, &req)
		if violations.Malformed() {
			respondValidation(c, violations)
			return
		}
		ctx := c.Request.Context()
		if err := checkReferences(ctx, restaurants, users, &req, violations); err != nil {
			internalError(c, "Reference lookup failed", err)
			return
		}
		if !violations.Empty() {
			respondValidation(c, violations)
			return
		}
		review := &domain.Review{
			RestaurantID: req.RestaurantID,
			ReviewerID:   *req.ReviewerID,
			Rating:       *req.Rating,
			Title:        req.Title,
			Body:         req.Body,
		}
		if err := reviews.Create(ctx, review); err != nil {
			// The restaurant or reviewer vanished after the checks above
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				gone := Violations{}
				if lookupErr := checkReferences(ctx, restaurants, users, &req, gone); lookupErr != nil || gone.Empty() {
					internalError(c, "Review creation failed", err)
					return
				}
				respondValidation(c, gone)
				return
			}
			if errors.Is(err, repository.ErrRatingOutOfRange) {
				respondValidation(c, Violations{"rating": {msgRatingRange}})
				return
			}
			internalError(c, "Review creation failed", err)
			return
		}
		recorder.ReviewMutated(mutationCreate)
		logrus.WithFields(logrus.Fields{
			"review_id":     review.ID,
			"restaurant_id": review.RestaurantID,
			"user_id":       c.GetUint(middleware.UserIDKey),
		}).Info("Review created")
		c.JSON(http.StatusCreated, review)
	}
}

// UpdateReviewHandler applies a partial update and refreshes the average rating
func UpdateReviewHandler(reviews repository.ReviewRepository, recorder MutationRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := reviewID(c)
		if !ok {
			return
		}
		// Unknown ids are reported before the body is looked at
		if _, err := reviews.GetWithRestaurant(c.Request.Context(), id); err != nil {
			reviewError(c, "Fetching review failed", err)
			return
		}
		var req UpdateReviewRequest // Bind JSON request to struct
		if violations := bindJSON(c, &req); !violations.Empty() {
			respondValidation(c, violations)
			return
		}
		review, err := reviews.Update(c.Request.Context(), id, req.patch())
		if errors.Is(err, repository.ErrRatingOutOfRange) {
			respondValidation(c, Violations{"rating": {msgRatingRange}})
			return
		}
		if err != nil {
			reviewError(c, "Review update failed", err)
			return
		}
		recorder.ReviewMutated(mutationUpdate)
		logrus.WithFields(logrus.Fields{
			"review_id":     review.ID,
			"restaurant_id": review.RestaurantID,
			"user_id":       c.GetUint(middleware.UserIDKey),
		}).Info("Review updated")
		c.JSON(http.StatusOK, review)
	}
}

// DeleteReviewHandler deletes a review and refreshes the average rating
func DeleteReviewHandler(reviews repository.ReviewRepository, recorder MutationRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := reviewID(c)
		if !ok {
			return
		}
		restaurantID, err := reviews.Delete(c.Request.Context(), id)
		if err != nil {
			reviewError(c, "Review deletion failed", err)
			return
		}
		recorder.ReviewMutated(mutationDelete)
		logrus.WithFields(logrus.Fields{
			"review_id":     id,
			"restaurant_id": restaurantID,
			"user_id":       c.GetUint(middleware.UserIDKey),
		}).Info("Review deleted")
		c.Status(http.StatusNoContent)
	}
}

// checkReferences adds a violation for each referenced row of req that does
// not exist. References that already failed validation are skipped.
func checkReferences(ctx context.Context, restaurants repository.RestaurantRepository, users repository.UserRepository, req *CreateReviewRequest, violations Violations) error {
	if !violations.Has("restaurant_id") {
		exists, err := restaurants.Exists(ctx, req.RestaurantID)
		if err != nil {
			return err
		}
		if !exists {
			violations.Add("restaurant_id", msgUnknownRestaurant)
		}
	}
	if !violations.Has("reviewer_id") && req.ReviewerID != nil {
		exists, err := users.Exists(ctx, *req.ReviewerID)
		if err != nil {
			return err
		}
		if !exists {
			violations.Add("reviewer_id", msgUnknownReviewer)
		}
	}
	return nil
}

// reviewID parses the id path parameter; ids that cannot exist answer 404
func reviewID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		response.Error(c, http.StatusNotFound, msgReviewNotFound)
		return 0, false
	}
	return uint(id), true
}

// reviewError maps a repository error onto 404 or 500
func reviewError(c *gin.Context, msg string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		response.Error(c, http.StatusNotFound, msgReviewNotFound)
		return
	}
	internalError(c, msg, err)
}
