package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/metrics"
	"github.com/fitforge/fitforge/pkg/orm"
)

// PlanInput is the writable part of a workout plan.
type PlanInput struct {
	Name          string               `json:"name"          validate:"required,max=255"`
	Description   string               `json:"description"`
	Price         decimal.Decimal      `json:"price"         validate:"gte=0"`
	Level         models.PlanLevel     `json:"level"         validate:"required,in=beginner,intermediate,advanced"`
	Category      models.PlanCategory  `json:"category"      validate:"required,in=strength,cardio,yoga,hiit,weight_loss,flexibility"`
	DurationWeeks int                  `json:"durationWeeks" validate:"nullable,gte=1,lte=104"`
	MaxMembers    int                  `json:"maxMembers"    validate:"required,gte=1"`
	Image         string               `json:"image"         validate:"nullable,url"`
	Status        models.CatalogStatus `json:"status"        validate:"nullable,in=active,inactive,draft,archived"`
	Visibility    models.Visibility    `json:"visibility"    validate:"nullable,in=public,private,members-only"`
	// TrainerID is honoured for admins only. Trainers always own what they create.
	TrainerID uint `json:"trainerId"`
}

func (in PlanInput) apply(p *models.WorkoutPlan) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Level = in.Level
	p.Category = in.Category
	if in.DurationWeeks > 0 {
		p.DurationWeeks = in.DurationWeeks
	}
	p.MaxMembers = in.MaxMembers
	if in.Image != "" {
		p.Image = in.Image
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.Visibility != "" {
		p.Visibility = in.Visibility
	}
}

// PlanService manages workout plans and their seat counters.
type PlanService struct {
	store repositories.Store
}

func NewPlanService(store repositories.Store) *PlanService {
	return &PlanService{store: store}
}

// GetPlan returns the plan with its reviews.
func (s *PlanService) GetPlan(ctx context.Context, id uint) (models.WorkoutPlan, error) {
	p, err := s.store.Plans().FindByID(ctx, id)
	if err != nil {
		return models.WorkoutPlan{}, planErr("plans: get", id, err)
	}
	reviews, err := s.store.Reviews().ListByTarget(ctx, models.TargetPlan, id)
	if err != nil {
		return models.WorkoutPlan{}, storeErr("plans: list reviews", err)
	}
	p.Reviews = reviews
	return p, nil
}

func (s *PlanService) ListPlans(ctx context.Context, q repositories.PlanQuery) ([]models.WorkoutPlan, orm.Pagination, error) {
	q.Page, q.Limit = orm.Normalize(q.Page, q.Limit)
	items, total, err := s.store.Plans().List(ctx, q)
	if err != nil {
		return nil, orm.Pagination{}, storeErr("plans: list", err)
	}
	return items, orm.NewPagination(q.Page, q.Limit, total), nil
}

func (s *PlanService) CreatePlan(ctx context.Context, caller auth.Principal, in PlanInput) (models.WorkoutPlan, error) {
	if !caller.IsAdmin() && !caller.IsTrainer() {
		return models.WorkoutPlan{}, apperr.Forbidden("only trainers and admins may create plans")
	}
	p := models.WorkoutPlan{
		TrainerID:     caller.ID,
		DurationWeeks: 4,
		Status:        models.StatusActive,
		Visibility:    models.VisibilityPublic,
	}
	if caller.IsAdmin() && in.TrainerID != 0 {
		p.TrainerID = in.TrainerID
	}
	in.apply(&p)

	if err := s.store.Plans().Create(ctx, &p); err != nil {
		return models.WorkoutPlan{}, storeErr("plans: create", err)
	}
	logger.WithCtx(ctx).Info("plans: created", "plan_id", p.ID, "trainer_id", p.TrainerID)
	return p, nil
}

// UpdatePlan lets admins edit any plan and trainers edit their own.
// MaxMembers cannot drop below the current member count.
func (s *PlanService) UpdatePlan(ctx context.Context, caller auth.Principal, id uint, in PlanInput) (models.WorkoutPlan, error) {
	p, err := s.store.Plans().FindByID(ctx, id)
	if err != nil {
		return models.WorkoutPlan{}, planErr("plans: update", id, err)
	}
	switch {
	case caller.IsAdmin():
		if in.TrainerID != 0 {
			p.TrainerID = in.TrainerID
		}
	case caller.IsTrainer() && p.TrainerID == caller.ID:
	default:
		return models.WorkoutPlan{}, apperr.Forbidden("you may only update your own plans")
	}
	in.apply(&p)

	if err := s.store.Plans().Update(ctx, &p); err != nil {
		if errors.Is(err, repositories.ErrPlanFull) {
			return models.WorkoutPlan{}, apperr.Validation("max_members_below_active",
				"maxMembers must be at least the %d active members", p.ActiveMembers)
		}
		return models.WorkoutPlan{}, planErr("plans: update", id, err)
	}
	return s.store.Plans().FindByID(ctx, id)
}

// CanJoin reports whether the plan accepts a new member right now.
func (s *PlanService) CanJoin(ctx context.Context, planID uint, _ auth.Principal) (bool, error) {
	p, err := s.store.Plans().FindByID(ctx, planID)
	if err != nil {
		return false, planErr("plans: can join", planID, err)
	}
	return p.CanJoin(), nil
}

// Join takes a seat on the plan. The increment is conditional on a seat
// being free, so concurrent joins never push past MaxMembers.
func (s *PlanService) Join(ctx context.Context, caller auth.Principal, planID uint) (models.WorkoutPlan, error) {
	p, err := s.store.Plans().FindByID(ctx, planID)
	if err != nil {
		return models.WorkoutPlan{}, planErr("plans: join", planID, err)
	}
	switch {
	case p.Visibility == models.VisibilityPrivate:
		return models.WorkoutPlan{}, apperr.Forbidden("workout plan %d is private", planID)
	case p.Status != models.StatusActive:
		return models.WorkoutPlan{}, apperr.Validation("plan_unavailable", "workout plan %d is %s", planID, p.Status)
	case !p.HasCapacity():
		metrics.PlanJoins.WithLabelValues("full").Inc()
		return models.WorkoutPlan{}, apperr.PlanFull(p.ID, p.MaxMembers, p.ActiveMembers)
	}

	if err := s.store.Plans().AddMember(ctx, planID); err != nil {
		if errors.Is(err, repositories.ErrPlanFull) {
			metrics.PlanJoins.WithLabelValues("full").Inc()
			if cur, ferr := s.store.Plans().FindByID(ctx, planID); ferr == nil {
				p = cur
			}
			return models.WorkoutPlan{}, apperr.PlanFull(p.ID, p.MaxMembers, p.ActiveMembers)
		}
		return models.WorkoutPlan{}, planErr("plans: join", planID, err)
	}
	metrics.PlanJoins.WithLabelValues("joined").Inc()
	logger.WithCtx(ctx).Info("plans: member joined", "plan_id", planID, "user_id", caller.ID)

	p, err = s.store.Plans().FindByID(ctx, planID)
	if err != nil {
		return models.WorkoutPlan{}, planErr("plans: join", planID, err)
	}
	return p, nil
}

// Leave gives up a seat. Leaving a plan with no members is a no-op.
func (s *PlanService) Leave(ctx context.Context, caller auth.Principal, planID uint) (models.WorkoutPlan, error) {
	removed, err := s.store.Plans().RemoveMember(ctx, planID)
	if err != nil {
		return models.WorkoutPlan{}, planErr("plans: leave", planID, err)
	}
	if removed {
		logger.WithCtx(ctx).Info("plans: member left", "plan_id", planID, "user_id", caller.ID)
	}
	p, err := s.store.Plans().FindByID(ctx, planID)
	if err != nil {
		return models.WorkoutPlan{}, planErr("plans: leave", planID, err)
	}
	return p, nil
}
