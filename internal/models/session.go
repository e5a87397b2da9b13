package models

// SnapshotProduct is the denormalized product copy embedded in a session
// snapshot. Option quantities here mirror the inventory ledger on a
// best-effort basis; they exist for display, not for correctness of sale.
type SnapshotProduct struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Price         int      `json:"price"`
	Description   string   `json:"description,omitempty"`
	Image         string   `json:"image,omitempty"`
	SellerID      int64    `json:"seller_id"`
	Options       []Option `json:"options"`
	DiscountPrice int      `json:"discount_price"`
}

// SessionSnapshot is the ephemeral live state of one broadcast, cached under
// broadcast:{id}. Current holds a denormalized copy of the highlighted
// product, so every mutation that touches a product must keep the list entry
// and the copy in sync. All mutations go through the methods below; callers
// never patch fields ad hoc.
type SessionSnapshot struct {
	Products     []SnapshotProduct `json:"products"`
	Current      *SnapshotProduct  `json:"current_product,omitempty"`
	Announcement string            `json:"announcement"`
	ShippingFee  int               `json:"shipping_fee"`
}

// NewSessionSnapshot seeds a snapshot from authoritative product rows at
// session start: first roster product highlighted, discounts zeroed,
// announcement empty.
func NewSessionSnapshot(products []Product, shippingFee int) *SessionSnapshot {
	s := &SessionSnapshot{
		Products:     make([]SnapshotProduct, 0, len(products)),
		Announcement: "",
		ShippingFee:  shippingFee,
	}
	for _, p := range products {
		s.Products = append(s.Products, snapshotProductFrom(p))
	}
	if len(s.Products) > 0 {
		s.setCurrent(&s.Products[0])
	}
	return s
}

func snapshotProductFrom(p Product) SnapshotProduct {
	opts := make([]Option, len(p.Options))
	copy(opts, p.Options)
	return SnapshotProduct{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Description:   p.Description,
		Image:         p.Image,
		SellerID:      p.SellerID,
		Options:       opts,
		DiscountPrice: 0,
	}
}

// setCurrent stores an independent copy so later list mutations cannot alias
// into the highlighted product by accident.
func (s *SessionSnapshot) setCurrent(p *SnapshotProduct) {
	if p == nil {
		s.Current = nil
		return
	}
	cp := *p
	cp.Options = make([]Option, len(p.Options))
	copy(cp.Options, p.Options)
	s.Current = &cp
}

// CurrentProductID returns the highlighted product id, if any.
func (s *SessionSnapshot) CurrentProductID() (int64, bool) {
	if s.Current == nil {
		return 0, false
	}
	return s.Current.ID, true
}

func (s *SessionSnapshot) find(productID int64) *SnapshotProduct {
	for i := range s.Products {
		if s.Products[i].ID == productID {
			return &s.Products[i]
		}
	}
	return nil
}

// AddProduct appends a product to the snapshot. Returns false if a product
// with the same id is already present.
func (s *SessionSnapshot) AddProduct(p Product) bool {
	if s.find(p.ID) != nil {
		return false
	}
	s.Products = append(s.Products, snapshotProductFrom(p))
	return true
}

// RemoveProduct deletes the product from the snapshot. If the removed
// product was highlighted, the first remaining product takes its place, or
// the highlight is cleared when the list is empty. Returns false when the
// product is not in the snapshot.
func (s *SessionSnapshot) RemoveProduct(productID int64) bool {
	idx := -1
	for i := range s.Products {
		if s.Products[i].ID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	s.Products = append(s.Products[:idx], s.Products[idx+1:]...)
	if s.Current != nil && s.Current.ID == productID {
		if len(s.Products) > 0 {
			s.setCurrent(&s.Products[0])
		} else {
			s.Current = nil
		}
	}
	return true
}

// SetCurrent highlights the given product. Returns false when the product is
// not in the snapshot.
func (s *SessionSnapshot) SetCurrent(productID int64) bool {
	p := s.find(productID)
	if p == nil {
		return false
	}
	s.setCurrent(p)
	return true
}

// SetAnnouncement replaces the announcement text.
func (s *SessionSnapshot) SetAnnouncement(text string) {
	s.Announcement = text
}

// SetDiscount sets the live discount price on a product, patching both the
// list entry and the highlighted copy when they are the same product.
// Returns false when the product is not in the snapshot.
func (s *SessionSnapshot) SetDiscount(productID int64, discountPrice int) bool {
	p := s.find(productID)
	if p == nil {
		return false
	}
	p.DiscountPrice = discountPrice
	if s.Current != nil && s.Current.ID == productID {
		s.Current.DiscountPrice = discountPrice
	}
	return true
}

// ApplyOrder mirrors a committed reservation into the cached stock figures,
// decrementing matching option quantities on the list entry and on the
// highlighted copy. Unknown products or options are ignored; the snapshot is
// advisory display state. Returns false when the product is not present.
func (s *SessionSnapshot) ApplyOrder(productID int64, reqs []OptionQuantity) bool {
	p := s.find(productID)
	if p == nil {
		return false
	}
	applyDecrements(p.Options, reqs)
	if s.Current != nil && s.Current.ID == productID {
		applyDecrements(s.Current.Options, reqs)
	}
	return true
}

func applyDecrements(opts []Option, reqs []OptionQuantity) {
	for _, r := range reqs {
		for i := range opts {
			if opts[i].Name == r.Name {
				opts[i].Quantity -= r.Quantity
				break
			}
		}
	}
}

// Live event names published on the session event channel.
const (
	LiveEventStarted      = "session.started"
	LiveEventEnded        = "session.ended"
	LiveEventCatalog      = "session.catalog_changed"
	LiveEventStockMirror  = "session.stock_mirrored"
	LiveEventAnnouncement = "session.announcement_changed"
)

// LiveEvent is fanned out over Redis pub/sub to websocket viewers of a
// broadcast. Snapshot is nil for the ended event.
type LiveEvent struct {
	BroadcastID int64            `json:"broadcast_id"`
	Event       string           `json:"event"`
	Snapshot    *SessionSnapshot `json:"snapshot,omitempty"`
}
