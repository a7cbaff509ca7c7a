package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlanLevel string

const (
	LevelBeginner     PlanLevel = "beginner"
	LevelIntermediate PlanLevel = "intermediate"
	LevelAdvanced     PlanLevel = "advanced"
)

const PlanLevels = "beginner,intermediate,advanced"

type PlanCategory string

const (
	PlanStrength    PlanCategory = "strength"
	PlanCardio      PlanCategory = "cardio"
	PlanYoga        PlanCategory = "yoga"
	PlanHIIT        PlanCategory = "hiit"
	PlanWeightLoss  PlanCategory = "weight_loss"
	PlanFlexibility PlanCategory = "flexibility"
)

const PlanCategories = "strength,cardio,yoga,hiit,weight_loss,flexibility"

type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityPrivate     Visibility = "private"
	VisibilityMembersOnly Visibility = "members-only"
)

const Visibilities = "public,private,members-only"

// WorkoutPlan is a trainer-run programme with limited seats.
// 0 <= ActiveMembers <= MaxMembers always holds.
type WorkoutPlan struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:255;not null;index" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Level         PlanLevel       `gorm:"size:20;not null;index" json:"level"`
	Category      PlanCategory    `gorm:"size:20;not null;index" json:"category"`
	TrainerID     uint            `gorm:"not null;index" json:"trainerId"`
	DurationWeeks int             `gorm:"not null;default:4" json:"durationWeeks"`
	MaxMembers    int             `gorm:"not null" json:"maxMembers"`
	ActiveMembers int             `gorm:"not null;default:0" json:"activeMembers"`
	Image         string          `gorm:"size:512" json:"image"`
	Status        CatalogStatus   `gorm:"size:16;not null;default:active;index" json:"status"`
	Visibility    Visibility      `gorm:"size:16;not null;default:public" json:"visibility"`
	AverageRating float64         `gorm:"not null;default:0" json:"averageRating"`
	ReviewCount   int             `gorm:"not null;default:0" json:"reviewCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Reviews []Review `gorm:"-" json:"reviews,omitempty"`
}

func (WorkoutPlan) TableName() string { return "workout_plans" }

// HasCapacity reports whether one more member fits.
func (p WorkoutPlan) HasCapacity() bool {
	return p.ActiveMembers < p.MaxMembers
}

// CanJoin is true for active, non-private plans with a free seat.
func (p WorkoutPlan) CanJoin() bool {
	return p.Status == StatusActive && p.HasCapacity() && p.Visibility != VisibilityPrivate
}

func (p WorkoutPlan) SeatsLeft() int {
	if n := p.MaxMembers - p.ActiveMembers; n > 0 {
		return n
	}
	return 0
}
