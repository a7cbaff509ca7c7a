package routes

import (
	"github.com/graphql-go/graphql"

	"github.com/fitforge/fitforge/app/controllers"
	"github.com/fitforge/fitforge/app/services"
	"github.com/fitforge/fitforge/pkg/ctx"
	fgql "github.com/fitforge/fitforge/pkg/graphql"
	"github.com/fitforge/fitforge/pkg/metrics"
	"github.com/fitforge/fitforge/pkg/middleware"
	"github.com/fitforge/fitforge/pkg/rbac"
	"github.com/fitforge/fitforge/pkg/router"
	"github.com/fitforge/fitforge/pkg/ws"
)

// Services is everything the HTTP layer needs. Hub, Schema and Checks are
// optional; their routes are skipped when unset.
type Services struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Plans   *services.PlanService
	Orders  *services.OrderService

	Hub    *ws.Hub
	Schema *graphql.Schema
	Checks map[string]controllers.Check
}

func RegisterAPI(r *router.Router, s Services) {
	authController := controllers.NewAuthController(s.Auth)
	productController := controllers.NewProductController(s.Catalog)
	planController := controllers.NewPlanController(s.Plans, s.Catalog)
	orderController := controllers.NewOrderController(s.Orders)
	healthController := controllers.NewHealthController(s.Checks)

	r.Get("/health", "health", ctx.Wrap(healthController.Index))
	r.Get("/metrics", "metrics", metrics.Handler())
	if s.Schema != nil {
		r.Handle("/graphql", "graphql", fgql.Handler(*s.Schema))
	}
	if s.Hub != nil {
		feed := controllers.NewFeedController(s.Hub)
		r.Get("/ws/orders", "ws.orders", ctx.Wrap(feed.Orders), middleware.AuthMiddleware)
	}

	api := r.Group("/api")

	api.Post("/auth/register", "auth.register", ctx.Wrap(authController.Register))
	api.Post("/auth/login", "auth.login", ctx.Wrap(authController.Login))
	api.Post("/auth/refresh", "auth.refresh", ctx.Wrap(authController.Refresh))

	api.Get("/products", "products.index", ctx.Wrap(productController.Index))
	api.Get("/products/{id}", "products.show", ctx.Wrap(productController.Show))
	api.Get("/products/{id}/availability", "products.availability", ctx.Wrap(productController.Availability))

	api.Get("/plans", "plans.index", ctx.Wrap(planController.Index))
	api.Get("/plans/{id}", "plans.show", ctx.Wrap(planController.Show))

	protected := api.Group("", middleware.AuthMiddleware)
	protected.Get("/auth/me", "auth.me", ctx.Wrap(authController.Me))

	protected.Post("/products/{id}/reviews", "products.reviews.store", ctx.Wrap(productController.Review))

	protected.Post("/plans/{id}/join", "plans.join", ctx.Wrap(planController.Join))
	protected.Post("/plans/{id}/leave", "plans.leave", ctx.Wrap(planController.Leave))
	protected.Post("/plans/{id}/reviews", "plans.reviews.store", ctx.Wrap(planController.Review))

	protected.Post("/orders", "orders.store", ctx.Wrap(orderController.Store))
	protected.Get("/orders", "orders.index", ctx.Wrap(orderController.Index))
	protected.Get("/orders/stats", "orders.stats", ctx.Wrap(orderController.Stats))
	protected.Get("/orders/{id}", "orders.show", ctx.Wrap(orderController.Show))
	protected.Get("/orders/{id}/history", "orders.history", ctx.Wrap(orderController.History))
	protected.Post("/orders/{id}/cancel", "orders.cancel", ctx.Wrap(orderController.Cancel))
	protected.Post("/orders/{id}/return", "orders.return", ctx.Wrap(orderController.Return))
	protected.Delete("/orders/{id}", "orders.destroy", ctx.Wrap(orderController.Destroy))

	staff := protected.Group("", rbac.Staff)
	staff.Post("/plans", "plans.store", ctx.Wrap(planController.Store))
	staff.Put("/plans/{id}", "plans.update", ctx.Wrap(planController.Update))

	admin := protected.Group("", rbac.Admin)
	admin.Post("/products", "products.store", ctx.Wrap(productController.Store))
	admin.Put("/products/{id}", "products.update", ctx.Wrap(productController.Update))
	admin.Delete("/products/{id}", "products.destroy", ctx.Wrap(productController.Destroy))
	admin.Patch("/products/{id}/stock", "products.stock", ctx.Wrap(productController.AdjustStock))
	admin.Post("/products/{id}/image", "products.image", ctx.Wrap(productController.UploadImage))
	admin.Patch("/orders/{id}/status", "orders.status", ctx.Wrap(orderController.UpdateStatus))
}
