package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", name)
			next.ServeHTTP(w, r)
		})
	}
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestGroupsJoinPrefixesAndMiddleware(t *testing.T) {
	r := New()
	api := r.Group("/api/", tag("api"))
	orders := api.Group("orders", tag("orders"))
	orders.Get("/{id}", "orders.show", ok, tag("route"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"api", "orders", "route"}, rec.Header().Values("X-Chain"))
}

func TestNamedRouteURL(t *testing.T) {
	r := New()
	r.Group("/api").Patch("/orders/{id}/status", "orders.status", ok)

	path, found := r.Path("orders.status")
	require.True(t, found)
	assert.Equal(t, "/api/orders/{id}/status", path)

	url, err := r.URL("orders.status", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/42/status", url)

	_, err = r.URL("orders.status", nil)
	assert.Error(t, err)
	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesSorted(t *testing.T) {
	r := New()
	g := r.Group("/api")
	g.Post("/products", "products.store", ok)
	g.Get("/products", "products.index", ok)
	r.Get("/health", "health", ok)
	r.Handle("/graphql", "graphql", http.HandlerFunc(ok))

	routes := r.Routes()
	require.Len(t, routes, 4)
	assert.Equal(t, http.MethodGet, routes[0].Method)
	assert.Equal(t, http.MethodPost, routes[1].Method)
	assert.Equal(t, "/api/products", routes[1].Path)
	assert.Equal(t, RouteInfo{Method: "*", Path: "/graphql", Name: "graphql"}, routes[2])
	assert.Equal(t, "/health", routes[3].Path)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/", joinPath())
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/api/orders", joinPath("/api/", "/orders/"))
}
