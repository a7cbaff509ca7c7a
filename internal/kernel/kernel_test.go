package kernel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/app/repositories/memory"
	"github.com/fitforge/fitforge/config"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/reqid"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func offline(t *testing.T) *Kernel {
	t.Helper()
	k, err := Offline(memory.New())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, k.Close(context.Background())) })
	return k
}

func TestOffline_ServesAPI(t *testing.T) {
	h := offline(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(reqid.Header))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RegistersEveryRoute(t *testing.T) {
	r := offline(t).Router()
	for _, name := range []string{
		"auth.login", "products.index", "products.stock", "plans.join",
		"orders.store", "orders.cancel", "orders.status", "graphql", "ws.orders", "health",
	} {
		_, ok := r.Path(name)
		assert.True(t, ok, name)
	}
}

func TestRouter_RateLimits(t *testing.T) {
	config.Set("RATE_LIMIT", "2")
	t.Cleanup(func() { config.Set("RATE_LIMIT", "200") })
	h := offline(t).Handler()

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
