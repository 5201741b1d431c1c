package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"restaurant_reviews/internal/domain"     // Importing domain models
	"restaurant_reviews/internal/middleware" // Authenticated caller lookup
	"restaurant_reviews/internal/repository" // Credential store
	"restaurant_reviews/internal/response"   // Uniform error bodies
	"restaurant_reviews/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM error values
)

const msgEmailTaken = "The email has already been taken."

// Request struct for registration
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`                                // Display name
	Email                string `json:"email" validate:"required,email,max=255"`                         // Unique login email
	Password             string `json:"password" validate:"required,min=8,eqfield=PasswordConfirmation"` // Plain password, hashed before storage
	PasswordConfirmation string `json:"password_confirmation"`                                           // Must repeat Password
}

func (r *RegisterRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`    // Login email
	Password string `json:"password" validate:"required"` // Plain password
}

func (r *LoginRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
}

// Response struct for authentication
type AuthResponse struct {
	User  *domain.User `json:"user"`  // Authenticated user, without password hash
	Token string       `json:"token"` // Bearer token
}

// RegisterHandler creates a user and returns it with a fresh token
func RegisterHandler(users repository.UserRepository, issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		violations := bindJSON(c, &req)
		if violations.Malformed() {
			respondValidation(c, violations)
			return
		}
		// Email uniqueness is checked only once the email itself is valid
		if !violations.Has("email") {
			taken, err := users.EmailTaken(c.Request.Context(), req.Email)
			if err != nil {
				internalError(c, "Email lookup failed", err)
				return
			}
			if taken {
				violations.Add("email", msgEmailTaken)
			}
		}
		if !violations.Empty() {
			respondValidation(c, violations)
			return
		}
		// Hash the password and create the user
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			internalError(c, "Password hashing failed", err)
			return
		}
		user := &domain.User{Name: req.Name, Email: req.Email, Password: hash}
		if err := users.Create(c.Request.Context(), user); err != nil {
			// A concurrent registration may win the unique index
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondValidation(c, Violations{"email": {msgEmailTaken}})
				return
			}
			internalError(c, "User creation failed", err)
			return
		}
		token, _, err := issuer.Issue(user.ID)
		if err != nil {
			internalError(c, "Token generation failed", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
		}).Info("User registered")
		c.JSON(http.StatusCreated, AuthResponse{User: user, Token: token})
	}
}

// LoginHandler authenticates a user and returns a fresh token
func LoginHandler(users repository.UserRepository, issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if violations := bindJSON(c, &req); !violations.Empty() {
			respondValidation(c, violations)
			return
		}
		user, err := users.FindByEmail(c.Request.Context(), req.Email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// Same answer as a wrong password
			logrus.Warn("Login failed")
			response.Error(c, http.StatusUnauthorized, response.MsgInvalidCredentials)
			return
		case err != nil:
			internalError(c, "User lookup failed", err)
			return
		}
		// Compare provided password with stored hash
		if !utils.CheckPassword(user.Password, req.Password) {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,
			}).Warn("Login failed")
			response.Error(c, http.StatusUnauthorized, response.MsgInvalidCredentials)
			return
		}
		token, _, err := issuer.Issue(user.ID)
		if err != nil {
			internalError(c, "Token generation failed", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
		}).Info("User logged in")
		c.JSON(http.StatusOK, AuthResponse{User: user, Token: token})
	}
}

// LogoutHandler revokes the token presented with the request
func LogoutHandler(issuer *utils.TokenIssuer, revoker utils.TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.CurrentClaims(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.MsgUnauthenticated)
			return
		}
		if err := revoker.Revoke(c.Request.Context(), claims.ID, issuer.Remaining(claims)); err != nil {
			internalError(c, "Token revocation failed", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": claims.UserID,
		}).Info("User logged out")
		c.Status(http.StatusOK)
	}
}

// internalError logs the cause and answers with a bare 500
func internalError(c *gin.Context, msg string, err error) {
	fields := logrus.Fields{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	}
	if requestID := c.GetString(middleware.RequestIDKey); requestID != "" {
		fields["request_id"] = requestID
	}
	logrus.WithFields(fields).Error(msg)
	response.Internal(c)
}
