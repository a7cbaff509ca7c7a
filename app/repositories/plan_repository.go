package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/pkg/orm"
)

type planRepository struct {
	db *gorm.DB
}

func (r *planRepository) FindByID(ctx context.Context, id uint) (models.WorkoutPlan, error) {
	var p models.WorkoutPlan
	err := r.db.WithContext(ctx).First(&p, id).Error
	return p, notFound(err)
}

func (r *planRepository) List(ctx context.Context, q PlanQuery) ([]models.WorkoutPlan, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.WorkoutPlan{})
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Level != "" {
		tx = tx.Where("level = ?", q.Level)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Visibility != "" {
		tx = tx.Where("visibility = ?", q.Visibility)
	}
	if q.TrainerID != 0 {
		tx = tx.Where("trainer_id = ?", q.TrainerID)
	}
	if q.Search != "" {
		pat := like(q.Search)
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pat, pat)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("plans: count: %w", err)
	}
	var items []models.WorkoutPlan
	if err := tx.Order("created_at DESC, id DESC").Scopes(orm.Paginate(q.Page, q.Limit)).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("plans: list: %w", err)
	}
	return items, total, nil
}

func (r *planRepository) Create(ctx context.Context, p *models.WorkoutPlan) error {
	return duplicate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *planRepository) Update(ctx context.Context, p *models.WorkoutPlan) error {
	res := r.db.WithContext(ctx).Model(&models.WorkoutPlan{ID: p.ID}).
		Where("active_members <= ?", p.MaxMembers).
		Select("name", "description", "price", "level", "category", "duration_weeks",
			"max_members", "image", "status", "visibility", "updated_at").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		cur, err := r.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if cur.ActiveMembers > p.MaxMembers {
			return ErrPlanFull
		}
	}
	return nil
}

func (r *planRepository) AddMember(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.WorkoutPlan{}).
		Where("id = ? AND active_members < max_members", id).
		Update("active_members", gorm.Expr("active_members + 1"))
	if res.Error != nil {
		return fmt.Errorf("plans: add member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrPlanFull
}

func (r *planRepository) RemoveMember(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.WorkoutPlan{}).
		Where("id = ? AND active_members > 0", id).
		Update("active_members", gorm.Expr("active_members - 1"))
	if res.Error != nil {
		return false, fmt.Errorf("plans: remove member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *planRepository) SetRating(ctx context.Context, id uint, s models.RatingSummary) error {
	res := r.db.WithContext(ctx).Model(&models.WorkoutPlan{}).Where("id = ?", id).
		Updates(map[string]any{"average_rating": s.Average, "review_count": s.Count})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
	}
	return nil
}
