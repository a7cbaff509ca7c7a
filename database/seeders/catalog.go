package seeders

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/config"
	"github.com/fitforge/fitforge/pkg/auth"
)

func init() {
	Register("users", seedUsers)
	Register("products", seedProducts)
	Register("workout_plans", seedPlans)
}

const (
	AdminEmail   = "admin@fitforge.local"
	TrainerEmail = "coach@fitforge.local"
)

func seedUsers(ctx context.Context, store repositories.Store) error {
	password := config.Get("SEED_PASSWORD", "fitforge-secret")
	for _, u := range []models.User{
		{Name: "FitForge Admin", Email: AdminEmail, Role: auth.RoleAdmin},
		{Name: "Head Coach", Email: TrainerEmail, Role: auth.RoleTrainer},
	} {
		if _, err := store.Users().FindByEmail(ctx, u.Email); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		u.Password = hash
		if err := store.Users().Create(ctx, &u); err != nil {
			return err
		}
	}
	return nil
}

var products = []models.Product{
	{Name: "Whey Protein 2kg", SKU: "SUP-WHEY-2KG", Category: models.CategorySupplements, Brand: "Forge Labs", Price: decimal.RequireFromString("54.90"), Stock: 120},
	{Name: "Creatine Monohydrate 500g", SKU: "SUP-CREA-500", Category: models.CategorySupplements, Brand: "Forge Labs", Price: decimal.RequireFromString("24.50"), Stock: 80},
	{Name: "Adjustable Dumbbell 24kg", SKU: "EQP-DB-24", Category: models.CategoryEquipment, Brand: "IronWorks", Price: decimal.RequireFromString("299.00"), Stock: 15, LowStockThreshold: 5},
	{Name: "Kettlebell 16kg", SKU: "EQP-KB-16", Category: models.CategoryEquipment, Brand: "IronWorks", Price: decimal.RequireFromString("59.00"), Stock: 40},
	{Name: "Training Tee", SKU: "APP-TEE-M", Category: models.CategoryApparel, Brand: "FitForge", Price: decimal.RequireFromString("19.99"), Stock: 200},
	{Name: "Lifting Straps", SKU: "ACC-STRAP", Category: models.CategoryAccessories, Brand: "IronWorks", Price: decimal.RequireFromString("12.00"), Stock: 65},
	{Name: "Oat Protein Bars x12", SKU: "NUT-BAR-12", Category: models.CategoryNutrition, Brand: "Forge Labs", Price: decimal.RequireFromString("27.60"), Stock: 90},
}

func seedProducts(ctx context.Context, store repositories.Store) error {
	for _, p := range products {
		if p.LowStockThreshold == 0 {
			p.LowStockThreshold = 10
		}
		if err := store.Products().Create(ctx, &p); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
			return err
		}
	}
	return nil
}

var plans = []models.WorkoutPlan{
	{Name: "Strength Foundations", Level: models.LevelBeginner, Category: models.PlanStrength, Price: decimal.RequireFromString("49.00"), DurationWeeks: 8, MaxMembers: 30},
	{Name: "HIIT Shred", Level: models.LevelIntermediate, Category: models.PlanHIIT, Price: decimal.RequireFromString("39.00"), DurationWeeks: 6, MaxMembers: 25},
	{Name: "Morning Flow Yoga", Level: models.LevelBeginner, Category: models.PlanYoga, Price: decimal.RequireFromString("29.00"), DurationWeeks: 4, MaxMembers: 20},
}

// seedPlans assigns every plan to the seeded trainer.
func seedPlans(ctx context.Context, store repositories.Store) error {
	coach, err := store.Users().FindByEmail(ctx, TrainerEmail)
	if err != nil {
		return err
	}
	for _, p := range plans {
		_, total, err := store.Plans().List(ctx, repositories.PlanQuery{Search: p.Name, TrainerID: coach.ID, Page: 1, Limit: 1})
		if err != nil {
			return err
		}
		if total > 0 {
			continue
		}
		p.TrainerID = coach.ID
		p.Status = models.StatusActive
		p.Visibility = models.VisibilityPublic
		if err := store.Plans().Create(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
