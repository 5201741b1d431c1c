package api

import (
	"fmt"      // Error wrapping
	"net/http" // HTTP status codes

	"restaurant_reviews/internal/metrics"    // Prometheus collectors
	"restaurant_reviews/internal/middleware" // Custom middleware
	"restaurant_reviews/internal/rating"     // Average rating maintenance
	"restaurant_reviews/internal/repository" // Storage
	"restaurant_reviews/internal/response"   // Uniform error bodies
	"restaurant_reviews/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Deps are the collaborators the router hands to its handlers
type Deps struct {
	DB             *gorm.DB
	Users          repository.UserRepository
	Restaurants    repository.RestaurantRepository
	Reviews        repository.ReviewRepository
	Issuer         *utils.TokenIssuer
	Revoker        utils.TokenRevoker
	Metrics        *metrics.Metrics
	TrustedProxies []string
}

// NewDeps builds the GORM repositories on db
func NewDeps(db *gorm.DB, issuer *utils.TokenIssuer, revoker utils.TokenRevoker, m *metrics.Metrics) Deps {
	return Deps{
		DB:          db,
		Users:       repository.NewUserRepository(db),
		Restaurants: repository.NewRestaurantRepository(db),
		Reviews:     repository.NewReviewRepository(db, rating.NewAggregator()),
		Issuer:      issuer,
		Revoker:     revoker,
		Metrics:     m,
	}
}

// NewRouter builds the gin engine with every route of the service
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	r.Use(
		middleware.RequestLogger(),
		middleware.Metrics(d.Metrics),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logrus.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"panic": fmt.Sprint(recovered),
			}).Error("Handler panicked")
			response.Internal(c)
		}),
	)

	// Operational routes
	r.GET("/healthz", HealthHandler(d.DB))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	auth := middleware.JWTAuthMiddleware(d.Issuer, d.Revoker)
	api := r.Group("/api")

	// Public routes
	api.POST("/register", RegisterHandler(d.Users, d.Issuer))
	api.POST("/login", LoginHandler(d.Users, d.Issuer))
	api.GET("/restaurants", ListRestaurantsHandler(d.Restaurants))
	api.GET("/reviews", ListReviewsHandler(d.Reviews))

	// Routes protected by bearer tokens
	protected := api.Group("")
	protected.Use(auth)
	protected.POST("/logout", LogoutHandler(d.Issuer, d.Revoker))

	protected.GET("/restaurants/:id", GetRestaurantHandler(d.Restaurants))
	protected.POST("/restaurants", CreateRestaurantHandler(d.Restaurants))
	protected.PUT("/restaurants/:id", UpdateRestaurantHandler(d.Restaurants))
	protected.DELETE("/restaurants/:id", DeleteRestaurantHandler(d.Restaurants))

	protected.GET("/reviews/reviewer/:reviewerId", ListReviewsByReviewerHandler(d.Reviews, d.Users))
	protected.GET("/reviews/:id", GetReviewHandler(d.Reviews))
	protected.POST("/reviews", CreateReviewHandler(d.Reviews, d.Restaurants, d.Users, d.Metrics))
	protected.PUT("/reviews/:id", UpdateReviewHandler(d.Reviews, d.Metrics))
	protected.DELETE("/reviews/:id", DeleteReviewHandler(d.Reviews, d.Metrics))

	// Unknown routes get the uniform body too
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Not found")
	})
	return r, nil
}
