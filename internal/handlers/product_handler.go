package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/models"
	"github.com/liveshop/backend/internal/repository"
)

// ProductHandler handles seller catalog management
type ProductHandler struct {
	products *repository.ProductRepository
}

func NewProductHandler(products *repository.ProductRepository) *ProductHandler {
	return &ProductHandler{products: products}
}

type createProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Price       int             `json:"price" binding:"required,min=1"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	IsPublic    *bool           `json:"is_public,omitempty"`
	Options     []models.Option `json:"options" binding:"required,min=1"`
}

// Create adds a product to the seller's catalog
func (h *ProductHandler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	product := &models.Product{
		SellerID:    middleware.UserID(c),
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
		IsPublic:    isPublic,
		Options:     req.Options,
	}
	if err := h.products.Create(product); err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, product)
}

// List returns the seller's catalog
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.ListBySeller(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, products)
}

// Get returns one product
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.products.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

// Delete removes a product the seller owns
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.products.Delete(middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
