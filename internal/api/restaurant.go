package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"restaurant_reviews/internal/domain"     // Importing domain models
	"restaurant_reviews/internal/middleware" // Authenticated caller lookup
	"restaurant_reviews/internal/repository" // Restaurant storage
	"restaurant_reviews/internal/response"   // Uniform error bodies

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM error values
)

const (
	msgRestaurantNotFound = "Restaurant not found"
	msgIDTaken            = "The id has already been taken."
)

// CreateRestaurantRequest represents a restaurant creation request
type CreateRestaurantRequest struct {
	ID   string `json:"id" validate:"required,max=255"`   // Client supplied identifier
	Name string `json:"name" validate:"required,max=255"` // Restaurant name
}

func (r *CreateRestaurantRequest) trim() {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
}

// UpdateRestaurantRequest represents a partial restaurant update; only the name is mutable
type UpdateRestaurantRequest struct {
	Name *string `json:"name" validate:"omitnil,filled,max=255"` // New name, absent to keep
}

func (r *UpdateRestaurantRequest) trim() {
	trimPtr(r.Name)
}

// ListRestaurantsHandler returns every restaurant with its reviews
func ListRestaurantsHandler(restaurants repository.RestaurantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := restaurants.ListWithReviews(c.Request.Context())
		if err != nil {
			internalError(c, "Listing restaurants failed", err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetRestaurantHandler returns one restaurant with its reviews
func GetRestaurantHandler(restaurants repository.RestaurantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		restaurant, err := restaurants.GetWithReviews(c.Request.Context(), c.Param("id"))
		if err != nil {
			restaurantError(c, "Fetching restaurant failed", err)
			return
		}
		c.JSON(http.StatusOK, restaurant)
	}
}

// CreateRestaurantHandler creates a restaurant under a client supplied id
func CreateRestaurantHandler(restaurants repository.RestaurantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRestaurantRequest // Bind JSON request to struct
		violations := bindJSON(c, &req)
		if violations.Malformed() {
			respondValidation(c, violations)
			return
		}
		if !violations.Has("id") {
			exists, err := restaurants.Exists(c.Request.Context(), req.ID)
			if err != nil {
				internalError(c, "Restaurant lookup failed", err)
				return
			}
			if exists {
				violations.Add("id", msgIDTaken)
			}
		}
		if !violations.Empty() {
			respondValidation(c, violations)
			return
		}
		restaurant := &domain.Restaurant{ID: req.ID, Name: req.Name}
		if err := restaurants.Create(c.Request.Context(), restaurant); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondValidation(c, Violations{"id": {msgIDTaken}})
				return
			}
			internalError(c, "Restaurant creation failed", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"restaurant_id": restaurant.ID,
			"user_id":       c.GetUint(middleware.UserIDKey),
		}).Info("Restaurant created")
		c.JSON(http.StatusCreated, restaurant)
	}
}

// UpdateRestaurantHandler renames a restaurant
func UpdateRestaurantHandler(restaurants repository.RestaurantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		// Unknown ids are reported before the body is looked at
		current, err := restaurants.Get(c.Request.Context(), id)
		if err != nil {
			restaurantError(c, "Fetching restaurant failed", err)
			return
		}
		var req UpdateRestaurantRequest // Bind JSON request to struct
		if violations := bindJSON(c, &req); !violations.Empty() {
			respondValidation(c, violations)
			return
		}
		if req.Name == nil {
			c.JSON(http.StatusOK, current)
			return
		}
		updated, err := restaurants.UpdateName(c.Request.Context(), id, *req.Name)
		if err != nil {
			restaurantError(c, "Restaurant update failed", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"restaurant_id": id,
			"user_id":       c.GetUint(middleware.UserIDKey),
		}).Info("Restaurant updated")
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteRestaurantHandler deletes a restaurant together with its reviews
func DeleteRestaurantHandler(restaurants repository.RestaurantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := restaurants.Delete(c.Request.Context(), id); err != nil {
			restaurantError(c, "Restaurant deletion failed", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"restaurant_id": id,
			"user_id":       c.GetUint(middleware.UserIDKey),
		}).Info("Restaurant deleted")
		c.Status(http.StatusNoContent)
	}
}

// restaurantError maps a repository error onto 404 or 500
func restaurantError(c *gin.Context, msg string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		response.Error(c, http.StatusNotFound, msgRestaurantNotFound)
		return
	}
	internalError(c, msg, err)
}
