package controllers

import (
	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/services"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/ctx"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// caller returns the authenticated principal, sending a 401 when absent.
func caller(c *ctx.Context) (auth.Principal, bool) {
	p, ok := c.Principal()
	if !ok {
		c.Unauthorized()
	}
	return p, ok
}

func (oc *OrderController) Store(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var input services.CreateOrderInput
	if !c.BindJSON(&input) {
		return
	}
	order, err := oc.orders.Create(c.Context(), p, input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(order)
}

// GET /api/orders?status=&from=&to=&userId=&page=&limit=
//
// userId is only honoured for admins.
func (oc *OrderController) Index(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	from, ok := c.QueryTime("from")
	if !ok {
		return
	}
	to, ok := c.QueryTime("to")
	if !ok {
		return
	}
	q := repositories.OrderQuery{
		UserID: uint(max(c.QueryInt("userId", 0), 0)),
		Status: models.OrderStatus(c.Query("status")),
		From:   from,
		To:     to,
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
	items, page, err := oc.orders.List(c.Context(), p, q)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

// GET /api/orders/stats?from=&to=&userId=
func (oc *OrderController) Stats(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	from, ok := c.QueryTime("from")
	if !ok {
		return
	}
	to, ok := c.QueryTime("to")
	if !ok {
		return
	}
	stats, err := oc.orders.Stats(c.Context(), p, repositories.StatsQuery{
		UserID: uint(max(c.QueryInt("userId", 0), 0)),
		From:   from,
		To:     to,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(stats)
}

func (oc *OrderController) Show(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := c.ParamUUID("id")
	if !ok {
		return
	}
	order, err := oc.orders.Get(c.Context(), p, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) History(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := c.ParamUUID("id")
	if !ok {
		return
	}
	changes, err := oc.orders.History(c.Context(), p, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(changes)
}

func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := c.ParamUUID("id")
	if !ok {
		return
	}
	var input services.StatusInput
	if !c.BindJSON(&input) {
		return
	}
	order, err := oc.orders.UpdateStatus(c.Context(), p, id, input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

type reasonInput struct {
	Reason string `json:"reason" validate:"nullable,max=500"`
}

// reason reads the optional {"reason": "..."} body. An empty body is fine.
func reason(c *ctx.Context) (string, bool) {
	var input reasonInput
	if c.R.ContentLength == 0 {
		return "", true
	}
	if !c.BindJSON(&input) {
		return "", false
	}
	return input.Reason, true
}

func (oc *OrderController) Cancel(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := c.ParamUUID("id")
	if !ok {
		return
	}
	why, ok := reason(c)
	if !ok {
		return
	}
	order, err := oc.orders.Cancel(c.Context(), p, id, why)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) Return(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := c.ParamUUID("id")
	if !ok {
		return
	}
	why, ok := reason(c)
	if !ok {
		return
	}
	order, err := oc.orders.Return(c.Context(), p, id, why)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) Destroy(c *ctx.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := c.ParamUUID("id")
	if !ok {
		return
	}
	if err := oc.orders.Delete(c.Context(), p, id); err != nil {
		c.Fail(err)
		return
	}
	c.NoContent()
}
