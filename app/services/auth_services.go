package services

import (
	"context"
	"errors"
	"strings"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/config"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/auth"
	"github.com/fitforge/fitforge/pkg/logger"
)

type RegisterInput struct {
	Name     string    `json:"name"     validate:"required,min=2,max=255"`
	Email    string    `json:"email"    validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	Role     auth.Role `json:"role"     validate:"nullable,in=customer,trainer"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Tokens is the body returned by login and refresh.
type Tokens struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	TokenType    string      `json:"tokenType"`
	ExpiresIn    int64       `json:"expiresIn"`
	User         models.User `json:"user"`
}

type AuthService struct {
	store repositories.Store
}

func NewAuthService(store repositories.Store) *AuthService {
	return &AuthService{store: store}
}

// Register creates a customer or trainer account. Admins are seeded.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	role := in.Role
	if role == "" {
		role = auth.RoleCustomer
	}
	if role == auth.RoleAdmin {
		return models.User{}, apperr.Forbidden("admin accounts cannot be self-registered")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Store("auth: hash password", err)
	}

	u := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Password: hash,
		Role:     role,
	}
	if err := s.store.Users().Create(ctx, &u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.User{}, apperr.Conflict("email_taken", "an account with email %s already exists", u.Email)
		}
		return models.User{}, storeErr("auth: create user", err)
	}
	logger.WithCtx(ctx).Info("auth: user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login checks the credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Tokens, error) {
	u, err := s.store.Users().FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Tokens{}, apperr.Unauthorized("invalid email or password")
		}
		return Tokens{}, storeErr("auth: find user", err)
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return Tokens{}, apperr.Unauthorized("invalid email or password")
	}
	return issue(u)
}

// Refresh exchanges a refresh token for a new pair. The user is reloaded so
// a changed role takes effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	claims, err := auth.ValidateRefreshToken(refreshToken)
	if err != nil {
		return Tokens{}, apperr.Unauthorized("invalid refresh token")
	}
	u, err := s.store.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Tokens{}, apperr.Unauthorized("account no longer exists")
		}
		return Tokens{}, storeErr("auth: find user", err)
	}
	return issue(u)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, caller auth.Principal) (models.User, error) {
	u, err := s.store.Users().FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperr.NotFound("user_not_found", "user %d not found", caller.ID)
		}
		return models.User{}, storeErr("auth: me", err)
	}
	return u, nil
}

func issue(u models.User) (Tokens, error) {
	access, err := auth.GenerateToken(u.Principal())
	if err != nil {
		return Tokens{}, apperr.Store("auth: sign access token", err)
	}
	refresh, err := auth.GenerateRefreshToken(u.Principal())
	if err != nil {
		return Tokens{}, apperr.Store("auth: sign refresh token", err)
	}
	return Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(config.JWTTTL().Seconds()),
		User:         u,
	}, nil
}
