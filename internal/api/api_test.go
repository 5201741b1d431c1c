package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"restaurant_reviews/internal/api"
	"restaurant_reviews/internal/db"
	"restaurant_reviews/internal/domain"
	"restaurant_reviews/internal/metrics"
	"restaurant_reviews/internal/response"
	"restaurant_reviews/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	db      *gorm.DB
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := db.OpenInMemory()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	m := metrics.New()
	deps := api.NewDeps(gdb, utils.NewTokenIssuer("test-secret", time.Hour), utils.NewRedisRevocationStore(rdb), m)
	router, err := api.NewRouter(deps)
	require.NoError(t, err)
	return &testServer{t: t, router: router, db: gdb, metrics: m}
}

// do sends body as JSON, or verbatim when it is a string
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(name, email string) api.AuthResponse {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/register", "", gin.H{
		"name":                  name,
		"email":                 email,
		"password":              "password123",
		"password_confirmation": "password123",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[api.AuthResponse](s.t, w)
}

func (s *testServer) createRestaurant(token, id string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/restaurants", token, gin.H{"id": id, "name": "Cafe " + id})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *testServer) createReview(token, restaurantID string, reviewerID uint, score int) domain.Review {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/reviews", token, gin.H{
		"restaurant_id": restaurantID,
		"reviewer_id":   reviewerID,
		"rating":        score,
		"title":         "Visit",
		"body":          "Ate there.",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.Review](s.t, w)
}

func (s *testServer) average(token, restaurantID string) float64 {
	s.t.Helper()
	w := s.do(http.MethodGet, "/api/restaurants/"+restaurantID, token, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[domain.RestaurantWithReviews](s.t, w).AverageRating
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) response.ErrorDetail {
	t.Helper()
	body := decode[response.ErrorBody](t, w)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, w.Code, body.Error.Code)
	return body.Error
}

func TestReviewLifecycleMaintainsAverageRating(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")

	w := s.do(http.MethodPost, "/api/restaurants", auth.Token, gin.H{"id": "r1", "name": "Cafe"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Restaurant](t, w)
	assert.Equal(t, "r1", created.ID)
	assert.Equal(t, 0.0, created.AverageRating)

	first := s.createReview(auth.Token, "r1", auth.User.ID, 4)
	assert.Equal(t, 4.0, s.average(auth.Token, "r1"))

	second := s.createReview(auth.Token, "r1", auth.User.ID, 2)
	assert.Equal(t, 3.0, s.average(auth.Token, "r1"))

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/reviews/%d", first.ID), auth.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, 2.0, s.average(auth.Token, "r1"))

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/reviews/%d", second.ID), auth.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0.0, s.average(auth.Token, "r1"))

	w = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, w.Body.String(), `restaurant_reviews_reviews_mutations_total{kind="create"} 2`)
	assert.Contains(t, w.Body.String(), `restaurant_reviews_reviews_mutations_total{kind="delete"} 2`)
}

func TestReviewUpdateRecomputesAverage(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")
	s.createRestaurant(auth.Token, "r1")
	review := s.createReview(auth.Token, "r1", auth.User.ID, 5)
	s.createReview(auth.Token, "r1", auth.User.ID, 3)
	path := fmt.Sprintf("/api/reviews/%d", review.ID)

	w := s.do(http.MethodPut, path, auth.Token, gin.H{"rating": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[domain.Review](t, w)
	assert.Equal(t, 1, updated.Rating)
	assert.Equal(t, "Visit", updated.Title)
	assert.Equal(t, 2.0, s.average(auth.Token, "r1"))

	w = s.do(http.MethodPut, path, auth.Token, gin.H{"title": "  Second visit  "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Second visit", decode[domain.Review](t, w).Title)

	w = s.do(http.MethodPut, path, auth.Token, gin.H{"title": " ", "rating": 9, "body": 12})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	detail := errorBody(t, w)
	assert.Equal(t, "Validation failed", detail.Message)
	assert.Equal(t, map[string][]string{
		"title":  {"The title field is required."},
		"rating": {"The rating field must not be greater than 5."},
		"body":   {"The body field must be a string."},
	}, detail.Details)
	assert.Equal(t, 2.0, s.average(auth.Token, "r1"))

	w = s.do(http.MethodPut, path, auth.Token, `{"title":null,"rating":null}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{
		"title":  {"The title field is required."},
		"rating": {"The rating field is required."},
	}, errorBody(t, w).Details)
	assert.Equal(t, 2.0, s.average(auth.Token, "r1"))

	w = s.do(http.MethodPut, "/api/reviews/999", auth.Token, gin.H{"rating": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Review not found", errorBody(t, w).Message)
}

func TestCreateReviewRejectsOutOfRangeRating(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")
	s.createRestaurant(auth.Token, "r1")

	for score, msg := range map[int]string{
		0:  "The rating field must be at least 1.",
		6:  "The rating field must not be greater than 5.",
		-3: "The rating field must be at least 1.",
	} {
		w := s.do(http.MethodPost, "/api/reviews", auth.Token, gin.H{
			"restaurant_id": "r1",
			"reviewer_id":   auth.User.ID,
			"rating":        score,
			"title":         "Visit",
			"body":          "Ate there.",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, []string{msg}, errorBody(t, w).Details["rating"])
	}

	var count int64
	require.NoError(t, s.db.Model(&domain.Review{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 0.0, s.average(auth.Token, "r1"))
}

func TestCreateReviewValidatesReferences(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")

	w := s.do(http.MethodPost, "/api/reviews", auth.Token, gin.H{
		"restaurant_id": "nowhere",
		"reviewer_id":   auth.User.ID + 100,
		"rating":        3,
		"title":         "Visit",
		"body":          "Ate there.",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{
		"restaurant_id": {"The selected restaurant id is invalid."},
		"reviewer_id":   {"The selected reviewer id is invalid."},
	}, errorBody(t, w).Details)

	w = s.do(http.MethodPost, "/api/reviews", auth.Token, gin.H{"rating": "five"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{
		"restaurant_id": {"The restaurant id field is required."},
		"reviewer_id":   {"The reviewer id field is required."},
		"rating":        {"The rating field must be an integer."},
		"title":         {"The title field is required."},
		"body":          {"The body field is required."},
	}, errorBody(t, w).Details)
}

func TestDeleteRestaurantCascadesToReviews(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")
	s.createRestaurant(auth.Token, "r1")
	s.createRestaurant(auth.Token, "r2")
	a := s.createReview(auth.Token, "r1", auth.User.ID, 5)
	b := s.createReview(auth.Token, "r1", auth.User.ID, 1)
	kept := s.createReview(auth.Token, "r2", auth.User.ID, 4)

	w := s.do(http.MethodDelete, "/api/restaurants/r1", auth.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	for _, id := range []uint{a.ID, b.ID} {
		w := s.do(http.MethodGet, fmt.Sprintf("/api/reviews/%d", id), auth.Token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Review not found", errorBody(t, w).Message)
	}

	w = s.do(http.MethodGet, "/api/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews := decode[[]domain.Review](t, w)
	require.Len(t, reviews, 1)
	assert.Equal(t, kept.ID, reviews[0].ID)
	require.NotNil(t, reviews[0].Restaurant)
	assert.Equal(t, "r2", reviews[0].Restaurant.ID)
	assert.Equal(t, 4.0, reviews[0].Restaurant.AverageRating)

	w = s.do(http.MethodGet, "/api/restaurants/r1", auth.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Restaurant not found", errorBody(t, w).Message)

	w = s.do(http.MethodDelete, "/api/restaurants/r1", auth.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestaurantEndpoints(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")

	w := s.do(http.MethodGet, "/api/restaurants", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	s.createRestaurant(auth.Token, "r1")
	s.createReview(auth.Token, "r1", auth.User.ID, 4)

	w = s.do(http.MethodPost, "/api/restaurants", auth.Token, gin.H{"id": "r1", "name": "Again"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{"id": {"The id has already been taken."}}, errorBody(t, w).Details)

	w = s.do(http.MethodPost, "/api/restaurants", auth.Token, gin.H{"name": "   "})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{
		"id":   {"The id field is required."},
		"name": {"The name field is required."},
	}, errorBody(t, w).Details)

	w = s.do(http.MethodPut, "/api/restaurants/r1", auth.Token, gin.H{"name": "Bistro", "average_rating": 1})
	require.Equal(t, http.StatusOK, w.Code)
	renamed := decode[domain.Restaurant](t, w)
	assert.Equal(t, "Bistro", renamed.Name)
	assert.Equal(t, 4.0, renamed.AverageRating)

	w = s.do(http.MethodPut, "/api/restaurants/r1", auth.Token, gin.H{"name": ""})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []string{"The name field is required."}, errorBody(t, w).Details["name"])

	w = s.do(http.MethodPut, "/api/restaurants/r1", auth.Token, `{"name":null}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{"name": {"The name field is required."}}, errorBody(t, w).Details)

	w = s.do(http.MethodPut, "/api/restaurants/r1", auth.Token, gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bistro", decode[domain.Restaurant](t, w).Name)

	// Missing restaurants are reported before the body is validated
	w = s.do(http.MethodPut, "/api/restaurants/missing", auth.Token, gin.H{"name": ""})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/restaurants", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]domain.RestaurantWithReviews](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Bistro", list[0].Name)
	assert.Len(t, list[0].Reviews, 1)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	auth := s.register("Ada", "ada@example.com")
	assert.NotEmpty(t, auth.Token)
	require.NotNil(t, auth.User)
	assert.Equal(t, "Ada", auth.User.Name)
	assert.NotZero(t, auth.User.ID)

	w := s.do(http.MethodPost, "/api/register", "", gin.H{
		"name":                  "Ada again",
		"email":                 "ada@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotContains(t, w.Body.String(), "password_hash")
	assert.Equal(t, map[string][]string{"email": {"The email has already been taken."}}, errorBody(t, w).Details)

	w = s.do(http.MethodPost, "/api/register", "", gin.H{
		"email":                 "not-an-email",
		"password":              "short",
		"password_confirmation": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{
		"name":     {"The name field is required."},
		"email":    {"The email field must be a valid email address."},
		"password": {"The password field must be at least 8 characters."},
	}, errorBody(t, w).Details)

	w = s.do(http.MethodPost, "/api/register", "", gin.H{
		"name":                  "Bob",
		"email":                 "bob@example.com",
		"password":              "password123",
		"password_confirmation": "password124",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []string{"The password field confirmation does not match."}, errorBody(t, w).Details["password"])

	var count int64
	require.NoError(t, s.db.Model(&domain.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterResponseHidesPassword(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/register", "", gin.H{
		"name":                  "Ada",
		"email":                 "ada@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body["user"], "password")
	assert.Equal(t, "ada@example.com", body["user"]["email"])
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	s.register("Ada", "ada@example.com")

	wrongPassword := s.do(http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "nope-nope"})
	unknownEmail := s.do(http.MethodPost, "/api/login", "", gin.H{"email": "bob@example.com", "password": "password123"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Equal(t, "Invalid credentials", errorBody(t, wrongPassword).Message)

	w := s.do(http.MethodPost, "/api/login", "", gin.H{})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string][]string{
		"email":    {"The email field is required."},
		"password": {"The password field is required."},
	}, errorBody(t, w).Details)

	w = s.do(http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	auth := decode[api.AuthResponse](t, w)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "ada@example.com", auth.User.Email)
}

func TestLogoutRevokesOnlyThePresentedToken(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")

	w := s.do(http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[api.AuthResponse](t, w).Token

	w = s.do(http.MethodPost, "/api/logout", auth.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(http.MethodGet, "/api/restaurants/r1", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthenticated.", errorBody(t, w).Message)

	w = s.do(http.MethodPost, "/api/logout", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/restaurants/r1", second, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/logout"},
		{http.MethodGet, "/api/restaurants/r1"},
		{http.MethodPost, "/api/restaurants"},
		{http.MethodPut, "/api/restaurants/r1"},
		{http.MethodDelete, "/api/restaurants/r1"},
		{http.MethodGet, "/api/reviews/1"},
		{http.MethodGet, "/api/reviews/reviewer/1"},
		{http.MethodPost, "/api/reviews"},
		{http.MethodPut, "/api/reviews/1"},
		{http.MethodDelete, "/api/reviews/1"},
	}
	for _, rt := range routes {
		w := s.do(rt.method, rt.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.method+" "+rt.path)

		w = s.do(rt.method, rt.path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.method+" "+rt.path)
	}

	for _, path := range []string{"/api/restaurants", "/api/reviews"} {
		w := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestListReviewsByReviewer(t *testing.T) {
	s := newTestServer(t)
	ada := s.register("Ada", "ada@example.com")
	bob := s.register("Bob", "bob@example.com")
	s.createRestaurant(ada.Token, "r1")
	s.createReview(ada.Token, "r1", ada.User.ID, 5)
	s.createReview(ada.Token, "r1", bob.User.ID, 3)

	w := s.do(http.MethodGet, fmt.Sprintf("/api/reviews/reviewer/%d", bob.User.ID), ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews := decode[[]domain.Review](t, w)
	require.Len(t, reviews, 1)
	assert.Equal(t, bob.User.ID, reviews[0].ReviewerID)
	require.NotNil(t, reviews[0].Restaurant)
	assert.Equal(t, 4.0, reviews[0].Restaurant.AverageRating)

	for _, id := range []string{"999", "abc"} {
		w := s.do(http.MethodGet, "/api/reviews/reviewer/"+id, ada.Token, nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		detail := errorBody(t, w)
		assert.Equal(t, "Invalid reviewer ID", detail.Message)
		assert.Equal(t, map[string][]string{"reviewer_id": {"The selected reviewer id is invalid."}}, detail.Details)
	}

	carol := s.register("Carol", "carol@example.com")
	w = s.do(http.MethodGet, fmt.Sprintf("/api/reviews/reviewer/%d", carol.User.ID), ada.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetReviewEmbedsRestaurant(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")
	s.createRestaurant(auth.Token, "r1")
	review := s.createReview(auth.Token, "r1", auth.User.ID, 5)

	w := s.do(http.MethodGet, fmt.Sprintf("/api/reviews/%d", review.ID), auth.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[domain.Review](t, w)
	assert.Equal(t, "Visit", got.Title)
	require.NotNil(t, got.Restaurant)
	assert.Equal(t, "Cafe r1", got.Restaurant.Name)

	w = s.do(http.MethodGet, "/api/reviews/not-a-number", auth.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedBodyIsValidationError(t *testing.T) {
	s := newTestServer(t)
	auth := s.register("Ada", "ada@example.com")

	for _, path := range []string{"/api/reviews", "/api/restaurants", "/api/register"} {
		w := s.do(http.MethodPost, path, auth.Token, `{"rating": `)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, path)
		assert.Contains(t, errorBody(t, w).Details, "request", path)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", errorBody(t, w).Message)
}
