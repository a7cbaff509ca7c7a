package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sequence is a named counter row.
type Sequence struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null;default:0"`
}

func (Sequence) TableName() string { return "sequences" }

type sequenceRepository struct {
	db *gorm.DB
}

// OrderSequence names the counter behind order numbers.
const OrderSequence = "orders"

// Next increments name inside its own (or the caller's) transaction. The
// row lock taken by the UPDATE serialises concurrent callers. Two callers
// racing to create a missing row both see no row updated; the loser's
// insert collides and it retries the UPDATE.
func (r *sequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	next, err := r.next(ctx, name)
	if errors.Is(duplicate(err), ErrDuplicate) {
		next, err = r.next(ctx, name)
	}
	if err != nil {
		return 0, fmt.Errorf("sequences: next %s: %w", name, err)
	}
	return next, nil
}

func (r *sequenceRepository) next(ctx context.Context, name string) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Sequence{}).Where("name = ?", name).Update("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&Sequence{Name: name, Value: 1}).Error; err != nil {
				return err
			}
			next = 1
			return nil
		}
		var seq Sequence
		if err := tx.First(&seq, "name = ?", name).Error; err != nil {
			return err
		}
		next = seq.Value
		return nil
	})
	return next, err
}
