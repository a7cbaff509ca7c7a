package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitforge/fitforge/app/models"
)

type reviewRepository struct {
	db *gorm.DB
}

// Upsert inserts rv or replaces the caller's earlier review of the same
// target. rv is reloaded afterwards so it carries the stored row's id and
// creation time on every driver.
func (r *reviewRepository) Upsert(ctx context.Context, rv *models.Review) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "title", "comment", "updated_at"}),
	}).Create(rv).Error
	if err != nil {
		return err
	}

	var stored models.Review
	err = db.Where("target_type = ? AND target_id = ? AND user_id = ?", rv.TargetType, rv.TargetID, rv.UserID).
		First(&stored).Error
	if err != nil {
		return notFound(err)
	}
	*rv = stored
	return nil
}

func (r *reviewRepository) ListByTarget(ctx context.Context, target models.ReviewTarget, id uint) ([]models.Review, error) {
	var out []models.Review
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", target, id).
		Order("updated_at DESC, id DESC").
		Find(&out).Error
	return out, err
}
