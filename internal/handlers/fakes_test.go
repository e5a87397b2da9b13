package handlers

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/liveshop/backend/internal/models"
	"github.com/liveshop/backend/internal/notify"
	"github.com/liveshop/backend/internal/repository"
)

// In-memory stand-ins for the stores. They keep the same guard semantics as
// the SQL implementations, mutex-locked so concurrency tests are meaningful.

type fakeBroadcasts struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Broadcast
}

func newFakeBroadcasts() *fakeBroadcasts {
	return &fakeBroadcasts{nextID: 1, items: make(map[int64]*models.Broadcast)}
}

func (f *fakeBroadcasts) put(b models.Broadcast) *models.Broadcast {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == 0 {
		b.ID = f.nextID
		f.nextID++
	}
	stored := b
	f.items[b.ID] = &stored
	return &stored
}

func copyBroadcast(b *models.Broadcast) *models.Broadcast {
	cp := *b
	cp.ProductIDs = append([]int64{}, b.ProductIDs...)
	return &cp
}

func (f *fakeBroadcasts) Create(b *models.Broadcast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.nextID
	f.nextID++
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	f.items[b.ID] = copyBroadcast(b)
	return nil
}

func (f *fakeBroadcasts) Update(b *models.Broadcast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[b.ID]
	if !ok || cur.SellerID != b.SellerID {
		return repository.ErrNotFound
	}
	f.items[b.ID] = copyBroadcast(b)
	return nil
}

func (f *fakeBroadcasts) GetByID(id int64) (*models.Broadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyBroadcast(b), nil
}

func (f *fakeBroadcasts) GetBySellerAndID(sellerID, id int64) (*models.Broadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok || b.SellerID != sellerID {
		return nil, repository.ErrNotFound
	}
	return copyBroadcast(b), nil
}

func (f *fakeBroadcasts) ListBySeller(sellerID int64, limit, offset int) ([]models.Broadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.Broadcast{}
	for _, b := range f.items {
		if b.SellerID == sellerID {
			result = append(result, *copyBroadcast(b))
		}
	}
	return result, nil
}

func (f *fakeBroadcasts) DeleteBySellerAndID(sellerID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok || b.SellerID != sellerID || b.IsLive() {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeBroadcasts) Start(sellerID, id int64, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok || b.SellerID != sellerID || b.StartedAt != nil {
		return repository.ErrConflict
	}
	b.StartedAt = &startedAt
	return nil
}

func (f *fakeBroadcasts) End(sellerID, id int64, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok || b.SellerID != sellerID || b.StartedAt == nil || b.EndedAt != nil {
		return repository.ErrConflict
	}
	b.EndedAt = &endedAt
	return nil
}

func (f *fakeBroadcasts) SetRoster(id int64, productIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.ProductIDs = append([]int64{}, productIDs...)
	return nil
}

func (f *fakeBroadcasts) SetMeetingRoom(id int64, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.MeetingRoomID = &roomID
	return nil
}

func (f *fakeBroadcasts) SetHLS(sellerID, id int64, hlsURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok || b.SellerID != sellerID {
		return repository.ErrNotFound
	}
	b.HLSURL = &hlsURL
	return nil
}

type fakeProducts struct {
	mu    sync.Mutex
	items map[int64]*models.Product
}

func newFakeProducts(products ...models.Product) *fakeProducts {
	f := &fakeProducts{items: make(map[int64]*models.Product)}
	for _, p := range products {
		stored := p
		stored.Options = append([]models.Option{}, p.Options...)
		f.items[p.ID] = &stored
	}
	return f
}

func copyProduct(p *models.Product) models.Product {
	cp := *p
	cp.Options = append([]models.Option{}, p.Options...)
	return cp
}

func (f *fakeProducts) GetOwned(sellerID int64, ids []int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := f.items[id]
		if !ok || p.SellerID != sellerID {
			return nil, repository.ErrNotFound
		}
		result = append(result, copyProduct(p))
	}
	return result, nil
}

func (f *fakeProducts) GetByID(id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := copyProduct(p)
	return &cp, nil
}

func (f *fakeProducts) ReserveStock(productID int64, reqs []models.OptionQuantity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[productID]
	if !ok {
		return repository.ErrNotFound
	}
	// validate every line before touching anything, all or nothing
	for _, req := range reqs {
		found := false
		for _, opt := range p.Options {
			if opt.Name == req.Name {
				found = true
				if opt.Quantity < req.Quantity {
					return repository.ErrInsufficientStock
				}
			}
		}
		if !found {
			return repository.ErrOptionNotFound
		}
	}
	for _, req := range reqs {
		for i := range p.Options {
			if p.Options[i].Name == req.Name {
				p.Options[i].Quantity -= req.Quantity
			}
		}
	}
	return nil
}

func (f *fakeProducts) stockOf(productID int64, option string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.items[productID]
	for _, opt := range p.Options {
		if opt.Name == option {
			return opt.Quantity
		}
	}
	return -1
}

type fakePlans struct {
	mu     sync.Mutex
	plan   *models.SellerPlan
	debits []int
}

func (f *fakePlans) GetBySeller(sellerID int64) (*models.SellerPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.plan == nil || f.plan.SellerID != sellerID {
		return nil, repository.ErrNotFound
	}
	cp := *f.plan
	return &cp, nil
}

func (f *fakePlans) DebitMinutes(sellerID int64, minutes int) (*models.SellerPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.plan == nil || f.plan.SellerID != sellerID {
		return nil, repository.ErrNotFound
	}
	f.plan.RemainMinutes -= minutes
	if f.plan.RemainMinutes < 0 {
		f.plan.RemainMinutes = 0
	}
	f.debits = append(f.debits, minutes)
	cp := *f.plan
	return &cp, nil
}

// fakeCache round-trips snapshots through JSON the way Redis would, so
// aliasing bugs between the handler's snapshot and the cached one surface.
type fakeCache struct {
	mu        sync.Mutex
	snapshots map[int64][]byte
	events    []models.LiveEvent
}

func newFakeCache() *fakeCache {
	return &fakeCache{snapshots: make(map[int64][]byte)}
}

func (f *fakeCache) SetSessionSnapshot(broadcastID int64, snapshot *models.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[broadcastID] = data
	return nil
}

func (f *fakeCache) GetSessionSnapshot(broadcastID int64) (*models.SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.snapshots[broadcastID]
	if !ok {
		return nil, nil
	}
	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (f *fakeCache) DeleteSessionSnapshot(broadcastID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snapshots, broadcastID)
	return nil
}

func (f *fakeCache) PublishLiveEvent(event models.LiveEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeCache) snapshotOf(broadcastID int64) *models.SessionSnapshot {
	s, _ := f.GetSessionSnapshot(broadcastID)
	return s
}

func (f *fakeCache) eventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.events))
	for _, e := range f.events {
		names = append(names, e.Event)
	}
	return names
}

type fakeBroker struct {
	mu          sync.Mutex
	roomID      string
	createCalls int
}

func (f *fakeBroker) CreateRoom(preferredID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.roomID != "" {
		return f.roomID
	}
	return preferredID
}

func (f *fakeBroker) JoinToken(roomID, participantID string) (string, error) {
	return "token:" + roomID + ":" + participantID, nil
}

func (f *fakeBroker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (f *fakeNotifier) SendAsync(msg notify.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeNotifier) all() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message{}, f.messages...)
}

type fakeFollows struct {
	followers []models.User
}

func (f *fakeFollows) ListFollowers(sellerID int64) ([]models.User, error) {
	return f.followers, nil
}

type fakeUsers struct {
	items map[int64]*models.User
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{items: make(map[int64]*models.User)}
	for _, u := range users {
		stored := u
		f.items[u.ID] = &stored
	}
	return f
}

func (f *fakeUsers) GetByID(id int64) (*models.User, error) {
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeOrders struct {
	mu         sync.Mutex
	nextID     int64
	orders     map[int64]*models.Order
	deliveries map[int64]*models.Delivery
	returns    map[int64]*models.Return
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		nextID:     1,
		orders:     make(map[int64]*models.Order),
		deliveries: make(map[int64]*models.Delivery),
		returns:    make(map[int64]*models.Return),
	}
}

func (f *fakeOrders) Create(o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = f.nextID
	f.nextID++
	o.OrderedAt = time.Now()
	stored := *o
	f.orders[o.ID] = &stored
	return nil
}

func (f *fakeOrders) GetByID(id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListByBuyer(buyerID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.Order{}
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (f *fakeOrders) ListBySeller(sellerID int64, broadcastID *int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.Order{}
	for _, o := range f.orders {
		if o.SellerID != sellerID {
			continue
		}
		if broadcastID != nil && (o.BroadcastID == nil || *o.BroadcastID != *broadcastID) {
			continue
		}
		result = append(result, *o)
	}
	return result, nil
}

func (f *fakeOrders) UpdateStatus(orderID int64, from, to models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Status != from {
		return repository.ErrConflict
	}
	o.Status = to
	return nil
}

func (f *fakeOrders) SetStatus(orderID int64, status models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrders) CreateDelivery(d *models.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = f.nextID
	f.nextID++
	stored := *d
	f.deliveries[d.OrderID] = &stored
	return nil
}

func (f *fakeOrders) GetDeliveryByOrder(orderID int64) (*models.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deliveries[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeOrders) CreateReturn(ret *models.Return) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret.ID = f.nextID
	f.nextID++
	ret.RequestedAt = time.Now()
	stored := *ret
	f.returns[ret.ID] = &stored
	return nil
}

func (f *fakeOrders) GetReturn(id int64) (*models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret, ok := f.returns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ret
	return &cp, nil
}

func (f *fakeOrders) ListReturnsBySeller(sellerID int64) ([]models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.Return{}
	for _, ret := range f.returns {
		if ret.SellerID == sellerID {
			result = append(result, *ret)
		}
	}
	return result, nil
}

func (f *fakeOrders) UpdateReturnStatus(returnID int64, to models.ReturnStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret, ok := f.returns[returnID]
	if !ok || ret.Status != models.ReturnRequest {
		return repository.ErrConflict
	}
	ret.Status = to
	return nil
}
