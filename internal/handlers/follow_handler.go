package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/repository"
)

// FollowHandler handles seller follow relationships
type FollowHandler struct {
	follows *repository.FollowRepository
}

func NewFollowHandler(follows *repository.FollowRepository) *FollowHandler {
	return &FollowHandler{follows: follows}
}

func sellerIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid seller id")
		return 0, false
	}
	return id, true
}

// Follow subscribes the caller to a seller's broadcast notifications
func (h *FollowHandler) Follow(c *gin.Context) {
	sellerID, ok := sellerIDParam(c)
	if !ok {
		return
	}
	if err := h.follows.Add(sellerID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Unfollow removes the subscription
func (h *FollowHandler) Unfollow(c *gin.Context) {
	sellerID, ok := sellerIDParam(c)
	if !ok {
		return
	}
	if err := h.follows.Remove(sellerID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// Followers lists the seller's own followers
func (h *FollowHandler) Followers(c *gin.Context) {
	followers, err := h.follows.ListFollowers(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, followers)
}
