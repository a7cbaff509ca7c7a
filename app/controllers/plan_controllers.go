package controllers

import (
	"context"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/services"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/ctx"
)

type PlanController struct {
	plans   *services.PlanService
	catalog *services.CatalogService
}

func NewPlanController(plans *services.PlanService, catalog *services.CatalogService) *PlanController {
	return &PlanController{plans: plans, catalog: catalog}
}

// GET /api/plans?category=&level=&trainerId=&search=&status=&visibility=&page=&limit=
//
// status defaults to active and visibility to public; "all" lifts either filter.
func (pc *PlanController) Index(c *ctx.Context) {
	q := repositories.PlanQuery{
		Category:  models.PlanCategory(c.Query("category")),
		Level:     models.PlanLevel(c.Query("level")),
		TrainerID: uint(max(c.QueryInt("trainerId", 0), 0)),
		Search:    c.Query("search"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 20),
	}
	if status := c.DefaultQuery("status", string(models.StatusActive)); status != "all" {
		q.Status = models.CatalogStatus(status)
	}
	if vis := c.DefaultQuery("visibility", string(models.VisibilityPublic)); vis != "all" {
		q.Visibility = models.Visibility(vis)
	}

	items, page, err := pc.plans.ListPlans(c.Context(), q)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

func (pc *PlanController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	plan, err := pc.plans.GetPlan(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(plan)
}

func (pc *PlanController) Store(c *ctx.Context) {
	caller, ok := c.Principal()
	if !ok {
		c.Unauthorized()
		return
	}
	var input services.PlanInput
	if !c.BindJSON(&input) {
		return
	}
	plan, err := pc.plans.CreatePlan(c.Context(), caller, input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(plan)
}

func (pc *PlanController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	caller, ok := c.Principal()
	if !ok {
		c.Unauthorized()
		return
	}
	var input services.PlanInput
	if !c.BindJSON(&input) {
		return
	}
	plan, err := pc.plans.UpdatePlan(c.Context(), caller, id, input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(plan)
}

func (pc *PlanController) Join(c *ctx.Context) {
	pc.membership(c, pc.plans.Join)
}

func (pc *PlanController) Leave(c *ctx.Context) {
	pc.membership(c, pc.plans.Leave)
}

func (pc *PlanController) membership(c *ctx.Context, op func(context.Context, auth.Principal, uint) (models.WorkoutPlan, error)) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	caller, ok := c.Principal()
	if !ok {
		c.Unauthorized()
		return
	}
	plan, err := op(c.Context(), caller, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(plan)
}

func (pc *PlanController) Review(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	caller, ok := c.Principal()
	if !ok {
		c.Unauthorized()
		return
	}
	var input services.ReviewInput
	if !c.BindJSON(&input) {
		return
	}
	review, err := pc.catalog.AddReview(c.Context(), caller, models.TargetPlan, id, input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(review)
}
