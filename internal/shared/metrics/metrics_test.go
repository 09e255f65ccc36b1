package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(ledgerOps.WithLabelValues("reserve", "quota_exceeded"))
	IncLedger("reserve", "quota_exceeded")
	IncLedger("reserve", "quota_exceeded")
	after := testutil.ToFloat64(ledgerOps.WithLabelValues("reserve", "quota_exceeded"))
	assert.Equal(t, before+2, after)
}

func TestAddResumeResultsIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(resumeResults.WithLabelValues("Error"))
	AddResumeResults("Error", 0)
	AddResumeResults("Error", -3)
	assert.Equal(t, before, testutil.ToFloat64(resumeResults.WithLabelValues("Error")))

	AddResumeResults("Error", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(resumeResults.WithLabelValues("Error")))
}

func TestHandlerServesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncRankingStarted()

	r := gin.New()
	r.GET("/metrics", Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.True(t, strings.Contains(body, "ranking_started_total"), "missing ranking_started_total")
	assert.True(t, strings.Contains(body, "go_goroutines"), "missing go collector output")
}
