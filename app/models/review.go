package models

import (
	"math"
	"time"
)

// Review is a user's rating of a product or plan. One row per
// (target, user); a later review replaces the earlier one.
type Review struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	TargetType ReviewTarget `gorm:"size:16;not null;uniqueIndex:idx_review_target_user,priority:1" json:"targetType"`
	TargetID   uint         `gorm:"not null;uniqueIndex:idx_review_target_user,priority:2" json:"targetId"`
	UserID     uint         `gorm:"not null;uniqueIndex:idx_review_target_user,priority:3" json:"userId"`
	Rating     int          `gorm:"not null" json:"rating"`
	Title      string       `gorm:"size:200" json:"title,omitempty"`
	Comment    string       `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// RatingSummary is the aggregate stored on the reviewed entity.
type RatingSummary struct {
	Average float64
	Count   int
}

// Summarize averages ratings, rounded to two decimals.
func Summarize(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return RatingSummary{Average: math.Round(avg*100) / 100, Count: len(reviews)}
}
