package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
)

type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (int64, error)
	Login(ctx context.Context, in users.LoginInput) (users.LoginResult, error)
}

type AuthHandler struct {
	Service UserService
	Env     string
}

func NewAuthHandler(service UserService, env string) *AuthHandler {
	return &AuthHandler{Service: service, Env: env}
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type loginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	Role    auth.Role `json:"role"`
	UserID  int64     `json:"userId"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	id, err := h.Service.Register(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{Message: "User registered", UserID: id})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input users.LoginInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	result, err := h.Service.Login(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Logged in successfully",
		Token:   result.Token,
		Role:    result.Role,
		UserID:  result.UserID,
	})
}
