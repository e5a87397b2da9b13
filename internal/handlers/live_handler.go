package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/models"
	"github.com/liveshop/backend/internal/notify"
	"github.com/liveshop/backend/internal/repository"
	"github.com/liveshop/backend/internal/video"
)

// Stores the session controller depends on. The repositories satisfy these;
// tests substitute in-memory fakes.

type broadcastStore interface {
	Create(*models.Broadcast) error
	Update(*models.Broadcast) error
	GetByID(id int64) (*models.Broadcast, error)
	GetBySellerAndID(sellerID, id int64) (*models.Broadcast, error)
	ListBySeller(sellerID int64, limit, offset int) ([]models.Broadcast, error)
	DeleteBySellerAndID(sellerID, id int64) error
	Start(sellerID, id int64, startedAt time.Time) error
	End(sellerID, id int64, endedAt time.Time) error
	SetRoster(id int64, productIDs []int64) error
	SetMeetingRoom(id int64, roomID string) error
	SetHLS(sellerID, id int64, hlsURL string) error
}

type productStore interface {
	GetOwned(sellerID int64, ids []int64) ([]models.Product, error)
}

type planStore interface {
	GetBySeller(sellerID int64) (*models.SellerPlan, error)
	DebitMinutes(sellerID int64, minutes int) (*models.SellerPlan, error)
}

type sessionCache interface {
	SetSessionSnapshot(broadcastID int64, snapshot *models.SessionSnapshot) error
	GetSessionSnapshot(broadcastID int64) (*models.SessionSnapshot, error)
	DeleteSessionSnapshot(broadcastID int64) error
	PublishLiveEvent(event models.LiveEvent) error
}

type roomBroker interface {
	CreateRoom(preferredID string) string
	JoinToken(roomID, participantID string) (string, error)
}

type messageSender interface {
	SendAsync(msg notify.Message)
}

type followerStore interface {
	ListFollowers(sellerID int64) ([]models.User, error)
}

type userStore interface {
	GetByID(id int64) (*models.User, error)
}

type orderReader interface {
	ListBySeller(sellerID int64, broadcastID *int64) ([]models.Order, error)
}

// LiveHandler is the session controller: broadcast CRUD, the start/end
// lifecycle, and all live catalog mutations.
type LiveHandler struct {
	broadcasts broadcastStore
	products   productStore
	plans      planStore
	cache      sessionCache
	broker     roomBroker
	notifier   messageSender
	follows    followerStore
	users      userStore
	orders     orderReader
}

func NewLiveHandler(
	broadcasts broadcastStore,
	products productStore,
	plans planStore,
	cache sessionCache,
	broker roomBroker,
	notifier messageSender,
	follows followerStore,
	users userStore,
	orders orderReader,
) *LiveHandler {
	return &LiveHandler{
		broadcasts: broadcasts,
		products:   products,
		plans:      plans,
		cache:      cache,
		broker:     broker,
		notifier:   notifier,
		follows:    follows,
		users:      users,
		orders:     orders,
	}
}

// List returns a page of the seller's broadcasts
func (h *LiveHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	broadcasts, err := h.broadcasts.ListBySeller(middleware.UserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, broadcasts)
}

// Create schedules a broadcast. The viewer cap is copied from the seller's
// plan meter at creation time; sellers without a plan get a cap of zero and
// the start precondition stops them later.
func (h *LiveHandler) Create(c *gin.Context) {
	var req models.CreateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	if len(req.ProductIDs) > 0 {
		if _, err := h.products.GetOwned(sellerID, req.ProductIDs); err != nil {
			respondError(c, err)
			return
		}
	}

	maxViewer := 0
	if sp, err := h.plans.GetBySeller(sellerID); err == nil {
		maxViewer = sp.MaxViewer
	}

	b := &models.Broadcast{
		SellerID:     sellerID,
		Title:        req.Title,
		ThumbnailURL: req.ThumbnailURL,
		ScheduledAt:  req.ScheduledAt,
		Description:  req.Description,
		MaxViewer:    maxViewer,
		ProductIDs:   req.ProductIDs,
		ShippingFee:  req.ShippingFee,
	}
	if err := h.broadcasts.Create(b); err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, b)
}

// Update rewrites a scheduled broadcast
func (h *LiveHandler) Update(c *gin.Context) {
	var req models.UpdateBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	b, err := h.broadcasts.GetBySellerAndID(sellerID, req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.IsLive() {
		respondFail(c, http.StatusConflict, "already start")
		return
	}
	if len(req.ProductIDs) > 0 {
		if _, err := h.products.GetOwned(sellerID, req.ProductIDs); err != nil {
			respondError(c, err)
			return
		}
	}

	b.Title = req.Title
	b.ThumbnailURL = req.ThumbnailURL
	b.ScheduledAt = req.ScheduledAt
	b.Description = req.Description
	b.ProductIDs = req.ProductIDs
	b.ShippingFee = req.ShippingFee
	if err := h.broadcasts.Update(b); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, b)
}

// Delete removes a batch of scheduled or ended broadcasts
func (h *LiveHandler) Delete(c *gin.Context) {
	var req models.DeleteBroadcastsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	for _, id := range req.BroadcastIDs {
		if err := h.broadcasts.DeleteBySellerAndID(sellerID, id); err != nil {
			respondError(c, err)
			return
		}
	}
	respondOK(c, nil)
}

type startResponse struct {
	Broadcast *models.Broadcast       `json:"broadcast"`
	RoomID    string                  `json:"room_id"`
	Token     string                  `json:"token"`
	Snapshot  *models.SessionSnapshot `json:"snapshot"`
}

// Start opens a live session. Preconditions run before any side effect: the
// broadcast must be unstarted, the plan meter must hold at least one minute,
// and every roster product must belong to the seller. Only then does the
// lifecycle row flip, the streaming room get acquired, and the session
// snapshot get seeded.
func (h *LiveHandler) Start(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid broadcast id")
		return
	}
	sellerID := middleware.UserID(c)

	b, err := h.broadcasts.GetBySellerAndID(sellerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.StartedAt != nil {
		respondFail(c, http.StatusConflict, "already start")
		return
	}

	sp, err := h.plans.GetBySeller(sellerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sp.RemainMinutes < 1 {
		respondError(c, repository.ErrInsufficientMinutes)
		return
	}

	products, err := h.products.GetOwned(sellerID, b.ProductIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	startedAt := time.Now()
	if err := h.broadcasts.Start(sellerID, id, startedAt); err != nil {
		respondError(c, err)
		return
	}
	b.StartedAt = &startedAt

	roomID := h.broker.CreateRoom(video.RoomFallbackID(id))
	if err := h.broadcasts.SetMeetingRoom(id, roomID); err != nil {
		respondError(c, err)
		return
	}
	b.MeetingRoomID = &roomID

	snapshot := models.NewSessionSnapshot(products, b.ShippingFee)
	if err := h.cache.SetSessionSnapshot(id, snapshot); err != nil {
		respondError(c, err)
		return
	}
	h.publish(id, models.LiveEventStarted, snapshot)

	token, err := h.broker.JoinToken(roomID, video.SellerParticipantID(sellerID))
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyFollowers(sellerID, b)

	respondOK(c, startResponse{
		Broadcast: b,
		RoomID:    roomID,
		Token:     token,
		Snapshot:  snapshot,
	})
}

func (h *LiveHandler) notifyFollowers(sellerID int64, b *models.Broadcast) {
	seller, err := h.users.GetByID(sellerID)
	if err != nil {
		return
	}
	followers, err := h.follows.ListFollowers(sellerID)
	if err != nil || len(followers) == 0 {
		return
	}
	recipients := make([]notify.Recipient, 0, len(followers))
	for _, f := range followers {
		recipients = append(recipients, notify.Recipient{UserID: f.ID, Phone: f.PhoneNum, Email: f.Email})
	}
	h.notifier.SendAsync(notify.BroadcastStartMessage(seller.Name, b.Title, b.ID, recipients))
}

type endResponse struct {
	UsedMinutes   int `json:"used_minutes"`
	RemainMinutes int `json:"remain_minutes"`
}

// End closes a live session. The guarded lifecycle update fires once, so the
// minute debit cannot double even when the request is retried. Elapsed time
// is floored to whole minutes; the meter never drops below zero.
func (h *LiveHandler) End(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid broadcast id")
		return
	}
	sellerID := middleware.UserID(c)

	b, err := h.broadcasts.GetBySellerAndID(sellerID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.StartedAt == nil {
		respondFail(c, http.StatusConflict, "not start")
		return
	}
	if b.EndedAt != nil {
		respondFail(c, http.StatusConflict, "already end")
		return
	}
	if _, err := h.plans.GetBySeller(sellerID); err != nil {
		respondError(c, err)
		return
	}

	endedAt := time.Now()
	if err := h.broadcasts.End(sellerID, id, endedAt); err != nil {
		respondError(c, err)
		return
	}

	used := int(endedAt.Sub(*b.StartedAt).Minutes())
	sp, err := h.plans.DebitMinutes(sellerID, used)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.cache.DeleteSessionSnapshot(id); err != nil {
		respondError(c, err)
		return
	}
	h.publish(id, models.LiveEventEnded, nil)

	h.notifyBuyers(sellerID, id, b.Title)
	h.notifier.SendAsync(notify.ReconciliationMessage(sellerID, b.Title, used, sp.RemainMinutes))

	respondOK(c, endResponse{UsedMinutes: used, RemainMinutes: sp.RemainMinutes})
}

// notifyBuyers sends one settlement batch to every distinct buyer with an
// order on the finished broadcast.
func (h *LiveHandler) notifyBuyers(sellerID, broadcastID int64, title string) {
	orders, err := h.orders.ListBySeller(sellerID, &broadcastID)
	if err != nil || len(orders) == 0 {
		return
	}
	seen := make(map[int64]bool, len(orders))
	recipients := make([]notify.Recipient, 0, len(orders))
	for _, o := range orders {
		if seen[o.BuyerID] {
			continue
		}
		seen[o.BuyerID] = true
		recipients = append(recipients, notify.Recipient{UserID: o.BuyerID, Phone: o.PhoneNum})
	}
	h.notifier.SendAsync(notify.SettlementMessage(title, recipients))
}

// GetSession returns the live session snapshot
func (h *LiveHandler) GetSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid broadcast id")
		return
	}
	snapshot, err := h.cache.GetSessionSnapshot(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if snapshot == nil {
		respondFail(c, http.StatusConflict, "not exist")
		return
	}
	respondOK(c, snapshot)
}

// loadLiveSession fetches the broadcast and its cached snapshot for a
// mutation, writing the error response on failure.
func (h *LiveHandler) loadLiveSession(c *gin.Context, sellerID, broadcastID int64) (*models.Broadcast, *models.SessionSnapshot, bool) {
	b, err := h.broadcasts.GetBySellerAndID(sellerID, broadcastID)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	snapshot, err := h.cache.GetSessionSnapshot(broadcastID)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	if snapshot == nil {
		respondFail(c, http.StatusConflict, "not exist")
		return nil, nil, false
	}
	return b, snapshot, true
}

// saveAndPublish persists a mutated snapshot, refreshing its TTL, and fans
// the change out to viewers.
func (h *LiveHandler) saveAndPublish(c *gin.Context, broadcastID int64, snapshot *models.SessionSnapshot, event string) bool {
	if err := h.cache.SetSessionSnapshot(broadcastID, snapshot); err != nil {
		respondError(c, err)
		return false
	}
	h.publish(broadcastID, event, snapshot)
	return true
}

// publish is best effort; viewers resync from the snapshot on reconnect.
func (h *LiveHandler) publish(broadcastID int64, event string, snapshot *models.SessionSnapshot) {
	_ = h.cache.PublishLiveEvent(models.LiveEvent{
		BroadcastID: broadcastID,
		Event:       event,
		Snapshot:    snapshot,
	})
}

// AddProduct appends a product to the live roster
func (h *LiveHandler) AddProduct(c *gin.Context) {
	var req models.RosterProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	b, snapshot, ok := h.loadLiveSession(c, sellerID, req.BroadcastID)
	if !ok {
		return
	}

	products, err := h.products.GetOwned(sellerID, []int64{req.ProductID})
	if err != nil {
		respondError(c, err)
		return
	}
	if !snapshot.AddProduct(products[0]) {
		respondFail(c, http.StatusConflict, "already exist")
		return
	}

	if err := h.broadcasts.SetRoster(req.BroadcastID, append(b.ProductIDs, req.ProductID)); err != nil {
		respondError(c, err)
		return
	}
	if !h.saveAndPublish(c, req.BroadcastID, snapshot, models.LiveEventCatalog) {
		return
	}
	respondOK(c, snapshot)
}

// RemoveProduct drops a product from the live roster. Removing the
// highlighted product moves the highlight to the first remaining product.
func (h *LiveHandler) RemoveProduct(c *gin.Context) {
	var req models.RosterProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	b, snapshot, ok := h.loadLiveSession(c, sellerID, req.BroadcastID)
	if !ok {
		return
	}
	if !snapshot.RemoveProduct(req.ProductID) {
		respondFail(c, http.StatusConflict, "not exist")
		return
	}

	roster := make([]int64, 0, len(b.ProductIDs))
	for _, pid := range b.ProductIDs {
		if pid != req.ProductID {
			roster = append(roster, pid)
		}
	}
	if err := h.broadcasts.SetRoster(req.BroadcastID, roster); err != nil {
		respondError(c, err)
		return
	}
	if !h.saveAndPublish(c, req.BroadcastID, snapshot, models.LiveEventCatalog) {
		return
	}
	respondOK(c, snapshot)
}

// SetCurrent changes the highlighted product
func (h *LiveHandler) SetCurrent(c *gin.Context) {
	var req models.RosterProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	_, snapshot, ok := h.loadLiveSession(c, sellerID, req.BroadcastID)
	if !ok {
		return
	}
	if !snapshot.SetCurrent(req.ProductID) {
		respondFail(c, http.StatusConflict, "not exist")
		return
	}
	if !h.saveAndPublish(c, req.BroadcastID, snapshot, models.LiveEventCatalog) {
		return
	}
	respondOK(c, snapshot)
}

// SetAnnouncement replaces the session announcement
func (h *LiveHandler) SetAnnouncement(c *gin.Context) {
	var req models.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	_, snapshot, ok := h.loadLiveSession(c, sellerID, req.BroadcastID)
	if !ok {
		return
	}
	snapshot.SetAnnouncement(req.Announcement)
	if !h.saveAndPublish(c, req.BroadcastID, snapshot, models.LiveEventAnnouncement) {
		return
	}
	respondOK(c, snapshot)
}

// SetDiscount sets a live discount price on a roster product
func (h *LiveHandler) SetDiscount(c *gin.Context) {
	var req models.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	sellerID := middleware.UserID(c)

	_, snapshot, ok := h.loadLiveSession(c, sellerID, req.BroadcastID)
	if !ok {
		return
	}
	if !snapshot.SetDiscount(req.ProductID, req.DiscountPrice) {
		respondFail(c, http.StatusConflict, "not exist")
		return
	}
	if !h.saveAndPublish(c, req.BroadcastID, snapshot, models.LiveEventCatalog) {
		return
	}
	respondOK(c, snapshot)
}

type hlsRequest struct {
	HLSURL string `json:"hls_url" binding:"required"`
}

// SetHLS stores the playback URL reported once the media pipeline is up
func (h *LiveHandler) SetHLS(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid broadcast id")
		return
	}
	var req hlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.broadcasts.SetHLS(middleware.UserID(c), id, req.HLSURL); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
