package controllers

import (
	"net/http"

	"brandmatch_server/services"

	"go.uber.org/zap"
)

// AuthController handles registration, login and password resets
type AuthController struct {
	AuthService *services.AuthService
	Logger      *zap.Logger
}

// NewAuthController creates a new instance of AuthController
func NewAuthController(authService *services.AuthService, logger *zap.Logger) *AuthController {
	return &AuthController{AuthService: authService, Logger: logger}
}

// Register creates an account and its profile
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	result, err := c.AuthService.Register(r.Context(), in)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, result)
}

// Login exchanges email and password for an access token
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	result, err := c.AuthService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

// SignOut revokes the caller's token
func (c *AuthController) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := c.AuthService.SignOut(r.Context(), rawToken(r)); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// RequestPasswordReset always answers 202 so accounts cannot be enumerated
func (c *AuthController) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	if err := c.AuthService.RequestPasswordReset(r.Context(), in.Email); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusAccepted, map[string]string{"message": "If the account exists, a reset link was sent"})
}

// ResetPassword consumes a reset token
func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	if err := c.AuthService.ResetPassword(r.Context(), in.Token, in.Password); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
