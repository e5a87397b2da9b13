package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/repository"
)

// Response is the envelope every endpoint returns.
type Response struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{OK: true, Message: "success", Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{OK: true, Message: "success", Data: data})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{OK: false, Message: message})
}

// respondError maps repository sentinels onto stable conflict messages.
// Clients branch on the message strings, so they never change.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondFail(c, http.StatusConflict, "not exist")
	case errors.Is(err, repository.ErrOptionNotFound):
		respondFail(c, http.StatusConflict, "option not exist")
	case errors.Is(err, repository.ErrInsufficientStock):
		respondFail(c, http.StatusConflict, "insufficient stock")
	case errors.Is(err, repository.ErrInsufficientMinutes):
		respondFail(c, http.StatusConflict, "insufficient remainMinute")
	case errors.Is(err, repository.ErrInsufficientBalance):
		respondFail(c, http.StatusConflict, "insufficient balance")
	case errors.Is(err, repository.ErrConflict):
		respondFail(c, http.StatusConflict, "conflict")
	default:
		log.Printf("internal error: %v", err)
		respondFail(c, http.StatusInternalServerError, "internal error")
	}
}
