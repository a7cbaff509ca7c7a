package migrations

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/pkg/migration"
)

func init() {
	migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
	migration.Register("20260101000001_create_products_table", &CreateProductsTable{})
	migration.Register("20260101000002_create_workout_plans_table", &CreateWorkoutPlansTable{})
	migration.Register("20260101000003_create_reviews_table", &CreateReviewsTable{})
	migration.Register("20260101000004_create_orders_tables", &CreateOrdersTables{})
	migration.Register("20260101000005_create_sequences_table", &CreateSequencesTable{})
}

// -------- 0001: users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.User{})
}

// -------- 0002: products --------

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Product{})
}

func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Product{})
}

// -------- 0003: workout plans --------

type CreateWorkoutPlansTable struct{}

func (m *CreateWorkoutPlansTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.WorkoutPlan{})
}

func (m *CreateWorkoutPlansTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.WorkoutPlan{})
}

// -------- 0004: reviews --------

type CreateReviewsTable struct{}

func (m *CreateReviewsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Review{})
}

func (m *CreateReviewsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Review{})
}

// -------- 0005: orders and their items --------

type CreateOrdersTables struct{}

func (m *CreateOrdersTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderItem{})
}

// Items go first; they reference orders.
func (m *CreateOrdersTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.OrderItem{}, &models.Order{})
}

// -------- 0006: sequences --------

type CreateSequencesTable struct{}

func (m *CreateSequencesTable) Up(db *gorm.DB) error {
	if err := db.AutoMigrate(&repositories.Sequence{}); err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&repositories.Sequence{Name: repositories.OrderSequence}).Error
}

func (m *CreateSequencesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&repositories.Sequence{})
}
