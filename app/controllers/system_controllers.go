package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/fitforge/fitforge/pkg/ctx"
	"github.com/fitforge/fitforge/pkg/ws"
)

// Check probes one dependency for /health.
type Check func(ctx context.Context) error

type HealthController struct {
	checks map[string]Check
}

func NewHealthController(checks map[string]Check) *HealthController {
	return &HealthController{checks: checks}
}

type health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Index answers 200 when every check passes and 503 otherwise.
func (hc *HealthController) Index(c *ctx.Context) {
	probe, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	out := health{Status: "ok", Checks: make(map[string]string, len(hc.checks))}
	for name, check := range hc.checks {
		if err := check(probe); err != nil {
			out.Status = "degraded"
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}

	if out.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// FeedController streams order status updates to the signed-in user.
type FeedController struct {
	hub *ws.Hub
}

func NewFeedController(hub *ws.Hub) *FeedController {
	return &FeedController{hub: hub}
}

// Orders upgrades GET /ws/orders to a websocket.
func (fc *FeedController) Orders(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	ws.Upgrade(c.W, c.R, fc.hub, p.ID)
}
