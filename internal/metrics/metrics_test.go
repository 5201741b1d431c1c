package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	done := m.RequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	m.ObserveRequest("GET", "/api/restaurants", "200", 0.01)
	m.ObserveRequest("GET", "/api/restaurants", "200", 0.02)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/restaurants", "200")))
}

func TestReviewMutated(t *testing.T) {
	m := New()
	m.ReviewMutated("create")
	m.ReviewMutated("delete")
	m.ReviewMutated("create")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reviewMutations.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewMutations.WithLabelValues("delete")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ReviewMutated("update")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `restaurant_reviews_reviews_mutations_total{kind="update"} 1`))
}
