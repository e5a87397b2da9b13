package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/auth"
	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/models"
	"github.com/liveshop/backend/internal/repository"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	users *repository.UserRepository
	jwt   *auth.JWTService
}

func NewAuthHandler(users *repository.UserRepository, jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

// Register creates a new account
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.users.GetByEmail(req.Email); err == nil {
		respondFail(c, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PhoneNum:     req.PhoneNum,
		Role:         req.Role,
		PasswordHash: hash,
	}
	if err := user.Validate(); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.users.Create(user); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, models.LoginResponse{Token: token, User: *user})
}

// Login authenticates and returns a token
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		respondFail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondFail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, models.LoginResponse{Token: token, User: *user})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}
