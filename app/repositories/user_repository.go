package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/fitforge/fitforge/app/models"
)

type userRepository struct {
	db *gorm.DB
}

// FindByEmail looks a user up by their normalised email address.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	return user, notFound(err)
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	return user, notFound(err)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return duplicate(r.db.WithContext(ctx).Create(user).Error)
}
