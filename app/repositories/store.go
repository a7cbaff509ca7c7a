package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// GormStore is the Store backed by a SQL database through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Products() ProductRepository   { return &productRepository{db: s.db} }
func (s *GormStore) Plans() PlanRepository         { return &planRepository{db: s.db} }
func (s *GormStore) Reviews() ReviewRepository     { return &reviewRepository{db: s.db} }
func (s *GormStore) Orders() OrderRepository       { return &orderRepository{db: s.db} }
func (s *GormStore) Users() UserRepository         { return &userRepository{db: s.db} }
func (s *GormStore) Sequences() SequenceRepository { return &sequenceRepository{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// duplicate maps unique-constraint violations from any supported driver
// onto ErrDuplicate.
func duplicate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unique constraint", "duplicate entry", "duplicate key", "unique index"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}

// like builds a case-insensitive substring pattern for LOWER(col) LIKE ?.
func like(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
