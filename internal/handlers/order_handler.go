package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/models"
)

type orderStore interface {
	Create(*models.Order) error
	GetByID(id int64) (*models.Order, error)
	ListByBuyer(buyerID int64) ([]models.Order, error)
	ListBySeller(sellerID int64, broadcastID *int64) ([]models.Order, error)
	UpdateStatus(orderID int64, from, to models.OrderStatus) error
	SetStatus(orderID int64, status models.OrderStatus) error
	CreateDelivery(*models.Delivery) error
	GetDeliveryByOrder(orderID int64) (*models.Delivery, error)
	CreateReturn(*models.Return) error
	GetReturn(id int64) (*models.Return, error)
	ListReturnsBySeller(sellerID int64) ([]models.Return, error)
	UpdateReturnStatus(returnID int64, to models.ReturnStatus) error
}

type inventoryStore interface {
	GetByID(id int64) (*models.Product, error)
	ReserveStock(productID int64, reqs []models.OptionQuantity) error
}

// OrderHandler handles order intake and the fulfilment/return flows.
type OrderHandler struct {
	orders    orderStore
	inventory inventoryStore
	users     userStore
	cache     sessionCache
}

func NewOrderHandler(orders orderStore, inventory inventoryStore, users userStore, cache sessionCache) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		inventory: inventory,
		users:     users,
		cache:     cache,
	}
}

// Place takes an order. The inventory ledger is the gate: the conditional
// stock reservation either commits in full or the order is rejected, so
// overselling cannot happen no matter how many buyers race. The session
// snapshot is only mirrored afterwards, best effort.
func (h *OrderHandler) Place(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	buyerID := middleware.UserID(c)

	buyer, err := h.users.GetByID(buyerID)
	if err != nil {
		respondError(c, err)
		return
	}
	product, err := h.inventory.GetByID(req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.inventory.ReserveStock(req.ProductID, req.Options); err != nil {
		respondError(c, err)
		return
	}

	address := req.Address
	if address == "" {
		address = buyer.Address
	}
	order := &models.Order{
		SellerID:    product.SellerID,
		BuyerID:     buyerID,
		ProductID:   product.ID,
		BuyerName:   buyer.Name,
		PhoneNum:    buyer.PhoneNum,
		ProductName: product.Name,
		Options:     req.Options,
		Price:       product.Price * models.TotalQuantity(req.Options),
		Address:     address,
		Status:      models.OrderWaiting,
		BroadcastID: req.BroadcastID,
	}
	if err := h.orders.Create(order); err != nil {
		respondError(c, err)
		return
	}

	if req.BroadcastID != nil {
		h.mirrorStock(*req.BroadcastID, req.ProductID, req.Options)
	}
	respondCreated(c, order)
}

// mirrorStock reflects a committed reservation into the cached session
// snapshot. The ledger already committed; a failed mirror only stales the
// display until the next snapshot write.
func (h *OrderHandler) mirrorStock(broadcastID, productID int64, opts []models.OptionQuantity) {
	snapshot, err := h.cache.GetSessionSnapshot(broadcastID)
	if err != nil || snapshot == nil {
		return
	}
	if !snapshot.ApplyOrder(productID, opts) {
		return
	}
	if err := h.cache.SetSessionSnapshot(broadcastID, snapshot); err != nil {
		return
	}
	_ = h.cache.PublishLiveEvent(models.LiveEvent{
		BroadcastID: broadcastID,
		Event:       models.LiveEventStockMirror,
		Snapshot:    snapshot,
	})
}

type orderWithDelivery struct {
	models.Order
	Delivery *models.Delivery `json:"delivery,omitempty"`
}

// ListMine returns the buyer's orders with delivery info where it exists
func (h *OrderHandler) ListMine(c *gin.Context) {
	orders, err := h.orders.ListByBuyer(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]orderWithDelivery, 0, len(orders))
	for _, o := range orders {
		item := orderWithDelivery{Order: o}
		if o.Status == models.OrderDone {
			if d, err := h.orders.GetDeliveryByOrder(o.ID); err == nil {
				item.Delivery = d
			}
		}
		result = append(result, item)
	}
	respondOK(c, result)
}

// ListForSeller returns the seller's orders, optionally scoped to a broadcast
func (h *OrderHandler) ListForSeller(c *gin.Context) {
	var broadcastID *int64
	if raw := c.Query("broadcast_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondFail(c, http.StatusBadRequest, "invalid broadcast id")
			return
		}
		broadcastID = &id
	}

	orders, err := h.orders.ListBySeller(middleware.UserID(c), broadcastID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, orders)
}

// Cancel starts the return flow for the buyer's own order. Only a WAITING
// order can enter the flow; the guarded transition makes a second cancel a
// conflict.
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req models.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	buyerID := middleware.UserID(c)

	order, err := h.orders.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.BuyerID != buyerID {
		respondFail(c, http.StatusConflict, "not exist")
		return
	}
	if order.Status.InCancelFlow() {
		respondFail(c, http.StatusConflict, "already cancel")
		return
	}

	if err := h.orders.UpdateStatus(id, models.OrderWaiting, models.OrderCancelRequest); err != nil {
		respondError(c, err)
		return
	}

	buyer, err := h.users.GetByID(buyerID)
	if err != nil {
		respondError(c, err)
		return
	}
	ret := &models.Return{
		OrderID:     order.ID,
		SellerID:    order.SellerID,
		BuyerName:   order.BuyerName,
		ProductName: order.ProductName,
		Options:     order.Options,
		Price:       order.Price,
		BankName:    buyer.BankName,
		AccountNum:  buyer.AccountNum,
		Reason:      req.Reason,
		Status:      models.ReturnRequest,
	}
	if err := h.orders.CreateReturn(ret); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, ret)
}

// Fulfil marks a WAITING order DONE and opens its delivery. DONE is the only
// transition a seller can drive directly; everything else goes through the
// return flow.
func (h *OrderHandler) Fulfil(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req models.OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status != models.OrderDone {
		respondFail(c, http.StatusBadRequest, "only DONE is allowed")
		return
	}
	sellerID := middleware.UserID(c)

	order, err := h.orders.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.SellerID != sellerID {
		respondFail(c, http.StatusConflict, "not exist")
		return
	}

	if err := h.orders.UpdateStatus(id, models.OrderWaiting, models.OrderDone); err != nil {
		respondError(c, err)
		return
	}

	delivery := &models.Delivery{
		OrderID:       order.ID,
		SellerID:      order.SellerID,
		ProductName:   order.ProductName,
		Options:       order.Options,
		OrderedAt:     order.OrderedAt,
		RecipientName: order.BuyerName,
		PhoneNum:      order.PhoneNum,
		Address:       order.Address,
		Status:        models.DeliveryReady,
	}
	if err := h.orders.CreateDelivery(delivery); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, delivery)
}

// ListReturns returns the seller's return requests
func (h *OrderHandler) ListReturns(c *gin.Context) {
	returns, err := h.orders.ListReturnsBySeller(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, returns)
}

// ResolveReturn settles a return request and moves the order accordingly.
func (h *OrderHandler) ResolveReturn(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid return id")
		return
	}
	var req models.ReturnStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	ret, err := h.orders.GetReturn(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if ret.SellerID != sellerID {
		respondFail(c, http.StatusConflict, "not exist")
		return
	}

	if err := h.orders.UpdateReturnStatus(id, req.Status); err != nil {
		respondError(c, err)
		return
	}

	orderStatus, ok := req.Status.OrderStatusFor()
	if !ok {
		respondFail(c, http.StatusBadRequest, "invalid status")
		return
	}
	if err := h.orders.SetStatus(ret.OrderID, orderStatus); err != nil {
		respondError(c, err)
		return
	}

	ret.Status = req.Status
	respondOK(c, ret)
}
