package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/lessons/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/lessons/abc", nil)
		router.ServeHTTP(w, req)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/lessons/:id", "204")))
}

func TestRewardCounters(t *testing.T) {
	m := New()
	m.LessonCompleted(10)
	m.GameEnded(5)
	m.AchievementAwarded(50)
	m.StaleWrite()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activities.WithLabelValues("lesson")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.points.WithLabelValues("lesson")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.points.WithLabelValues("achievement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleWrites))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LessonCompleted(1)
		m.GameEnded(1)
		m.AchievementAwarded(1)
		m.StaleWrite()
		m.WebsocketOpened()
		m.WebsocketClosed()
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.LessonCompleted(10)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alif24_activities_completed_total")
}
