package controllers

import (
	"github.com/fitforge/fitforge/app/services"
	"github.com/fitforge/fitforge/pkg/ctx"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

func (ac *AuthController) Register(c *ctx.Context) {
	var input services.RegisterInput
	if !c.BindJSON(&input) {
		return
	}
	user, err := ac.service.Register(c.Context(), input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(user)
}

func (ac *AuthController) Login(c *ctx.Context) {
	var input services.LoginInput
	if !c.BindJSON(&input) {
		return
	}
	tokens, err := ac.service.Login(c.Context(), input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(tokens)
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (ac *AuthController) Refresh(c *ctx.Context) {
	var input refreshInput
	if !c.BindJSON(&input) {
		return
	}
	tokens, err := ac.service.Refresh(c.Context(), input.RefreshToken)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(tokens)
}

func (ac *AuthController) Me(c *ctx.Context) {
	caller, ok := c.Principal()
	if !ok {
		c.Unauthorized()
		return
	}
	user, err := ac.service.Me(c.Context(), caller)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}
