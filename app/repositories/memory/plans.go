package memory

import (
	"context"
	"slices"
	"time"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
)

type planRepo struct{ s *Store }

func (r *planRepo) FindByID(_ context.Context, id uint) (models.WorkoutPlan, error) {
	defer r.s.lock()()
	p, ok := r.s.cur().plans[id]
	if !ok {
		return models.WorkoutPlan{}, repositories.ErrNotFound
	}
	return p, nil
}

func (r *planRepo) List(_ context.Context, q repositories.PlanQuery) ([]models.WorkoutPlan, int64, error) {
	defer r.s.lock()()

	var out []models.WorkoutPlan
	for _, p := range r.s.cur().plans {
		switch {
		case q.Category != "" && p.Category != q.Category,
			q.Level != "" && p.Level != q.Level,
			q.Status != "" && p.Status != q.Status,
			q.Visibility != "" && p.Visibility != q.Visibility,
			q.TrainerID != 0 && p.TrainerID != q.TrainerID:
			continue
		}
		if q.Search != "" && !contains(p.Name, q.Search) && !contains(p.Description, q.Search) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.WorkoutPlan) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	return page(out, q.Page, q.Limit), int64(len(out)), nil
}

func (r *planRepo) Create(_ context.Context, p *models.WorkoutPlan) error {
	defer r.s.lock()()
	st := r.s.cur()
	st.nextPlan++
	p.ID = st.nextPlan
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.Reviews = nil
	st.plans[p.ID] = stored
	return nil
}

func (r *planRepo) Update(_ context.Context, p *models.WorkoutPlan) error {
	defer r.s.lock()()
	st := r.s.cur()
	cur, ok := st.plans[p.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if cur.ActiveMembers > p.MaxMembers {
		return repositories.ErrPlanFull
	}
	cur.Name, cur.Description, cur.Price = p.Name, p.Description, p.Price
	cur.Level, cur.Category, cur.DurationWeeks = p.Level, p.Category, p.DurationWeeks
	cur.MaxMembers, cur.Image = p.MaxMembers, p.Image
	cur.Status, cur.Visibility = p.Status, p.Visibility
	cur.UpdatedAt = time.Now()
	st.plans[p.ID] = cur
	return nil
}

func (r *planRepo) AddMember(_ context.Context, id uint) error {
	defer r.s.lock()()
	st := r.s.cur()
	p, ok := st.plans[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if p.ActiveMembers >= p.MaxMembers {
		return repositories.ErrPlanFull
	}
	p.ActiveMembers++
	st.plans[id] = p
	return nil
}

func (r *planRepo) RemoveMember(_ context.Context, id uint) (bool, error) {
	defer r.s.lock()()
	st := r.s.cur()
	p, ok := st.plans[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if p.ActiveMembers == 0 {
		return false, nil
	}
	p.ActiveMembers--
	st.plans[id] = p
	return true, nil
}

func (r *planRepo) SetRating(_ context.Context, id uint, s models.RatingSummary) error {
	defer r.s.lock()()
	st := r.s.cur()
	p, ok := st.plans[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.AverageRating, p.ReviewCount = s.Average, s.Count
	st.plans[id] = p
	return nil
}
