package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/models"
	"github.com/liveshop/backend/internal/repository"
)

// PlanHandler handles plan listing, purchase, and the seller's meter
type PlanHandler struct {
	plans *repository.PlanRepository
}

func NewPlanHandler(plans *repository.PlanRepository) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// List returns the purchasable plans
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.plans.ListActive()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, plans)
}

// Purchase buys a plan for the seller
func (h *PlanHandler) Purchase(c *gin.Context) {
	var req models.PurchasePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.plans.Purchase(middleware.UserID(c), req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// Status returns the seller's plan meter
func (h *PlanHandler) Status(c *gin.Context) {
	sp, err := h.plans.GetBySeller(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sp)
}
