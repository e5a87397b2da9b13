package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/models"
)

const testBuyerID int64 = 30

type orderEnv struct {
	orders   *fakeOrders
	products *fakeProducts
	cache    *fakeCache
	router   *gin.Engine
}

func newOrderEnv(asUserID int64) *orderEnv {
	gin.SetMode(gin.TestMode)

	env := &orderEnv{
		orders: newFakeOrders(),
		products: newFakeProducts(
			models.Product{ID: 1, SellerID: testSellerID, Name: "hoodie", Price: 30000, Options: []models.Option{{Name: "S", Quantity: 2}, {Name: "M", Quantity: 5}}},
		),
		cache: newFakeCache(),
	}
	users := newFakeUsers(
		models.User{ID: testBuyerID, Name: "Buyer Kim", PhoneNum: "010-1111-2222", Address: "Seoul", BankName: "KB", AccountNum: "110-222"},
		models.User{ID: testSellerID, Name: "Jin's Shop"},
	)

	h := NewOrderHandler(env.orders, env.products, users, env.cache)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", asUserID)
	})
	router.POST("/orders", h.Place)
	router.GET("/orders", h.ListMine)
	router.POST("/orders/:id/cancel", h.Cancel)
	router.PATCH("/orders/:id/status", h.Fulfil)
	router.GET("/seller/orders", h.ListForSeller)
	router.GET("/seller/returns", h.ListReturns)
	router.PATCH("/seller/returns/:id", h.ResolveReturn)
	env.router = router
	return env
}

func TestPlace_ReservesStockAndPricesOrder(t *testing.T) {
	env := newOrderEnv(testBuyerID)
	broadcastID := int64(5)
	products, _ := env.products.GetOwned(testSellerID, []int64{1})
	env.cache.SetSessionSnapshot(broadcastID, models.NewSessionSnapshot(products, 0))

	w := doJSON(env.router, http.MethodPost, "/orders", models.PlaceOrderRequest{
		ProductID:   1,
		Options:     []models.OptionQuantity{{Name: "S", Quantity: 1}, {Name: "M", Quantity: 2}},
		BroadcastID: &broadcastID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var order models.Order
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.Price != 90000 {
		t.Errorf("price = %d, want unit price times total quantity 90000", order.Price)
	}
	if order.Status != models.OrderWaiting {
		t.Errorf("status = %s, want WAITING", order.Status)
	}
	if order.BuyerName != "Buyer Kim" || order.Address != "Seoul" {
		t.Errorf("buyer fields not denormalized: %+v", order)
	}

	// the ledger committed
	if got := env.products.stockOf(1, "S"); got != 1 {
		t.Errorf("S stock = %d, want 1", got)
	}
	if got := env.products.stockOf(1, "M"); got != 3 {
		t.Errorf("M stock = %d, want 3", got)
	}

	// the session snapshot mirrored the decrement
	snapshot := env.cache.snapshotOf(broadcastID)
	if got := snapshot.Products[0].Options[0].Quantity; got != 1 {
		t.Errorf("mirrored S stock = %d, want 1", got)
	}
	if names := env.cache.eventNames(); len(names) != 1 || names[0] != models.LiveEventStockMirror {
		t.Errorf("events = %v", names)
	}
}

func TestPlace_ConcurrentLastUnits(t *testing.T) {
	env := newOrderEnv(testBuyerID)

	// S has 2 units; two buyers race for 2 each
	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := doJSON(env.router, http.MethodPost, "/orders", models.PlaceOrderRequest{
				ProductID: 1,
				Options:   []models.OptionQuantity{{Name: "S", Quantity: 2}},
			})
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created, conflicted := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		}
	}
	if created != 1 || conflicted != 1 {
		t.Fatalf("codes = %v, want exactly one success and one conflict", codes)
	}
	if got := env.products.stockOf(1, "S"); got != 0 {
		t.Errorf("S stock = %d, want 0", got)
	}
	orders, _ := env.orders.ListByBuyer(testBuyerID)
	if len(orders) != 1 {
		t.Errorf("orders = %d, want 1", len(orders))
	}
}

func TestPlace_InsufficientStockLeavesLedgerUntouched(t *testing.T) {
	env := newOrderEnv(testBuyerID)

	// M has enough but S does not; the whole reservation must fail
	w := doJSON(env.router, http.MethodPost, "/orders", models.PlaceOrderRequest{
		ProductID: 1,
		Options:   []models.OptionQuantity{{Name: "M", Quantity: 3}, {Name: "S", Quantity: 3}},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if msg := decodeEnvelope(t, w).Message; msg != "insufficient stock" {
		t.Errorf("message = %q", msg)
	}
	if got := env.products.stockOf(1, "M"); got != 5 {
		t.Errorf("M stock = %d, want untouched 5", got)
	}
	orders, _ := env.orders.ListByBuyer(testBuyerID)
	if len(orders) != 0 {
		t.Errorf("orders = %d, want 0", len(orders))
	}
}

func TestPlace_UnknownOption(t *testing.T) {
	env := newOrderEnv(testBuyerID)

	w := doJSON(env.router, http.MethodPost, "/orders", models.PlaceOrderRequest{
		ProductID: 1,
		Options:   []models.OptionQuantity{{Name: "XL", Quantity: 1}},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if msg := decodeEnvelope(t, w).Message; msg != "option not exist" {
		t.Errorf("message = %q", msg)
	}
}

func TestPlace_MirrorSkippedWithoutSnapshot(t *testing.T) {
	env := newOrderEnv(testBuyerID)
	broadcastID := int64(5)

	// no snapshot cached; the order still goes through
	w := doJSON(env.router, http.MethodPost, "/orders", models.PlaceOrderRequest{
		ProductID:   1,
		Options:     []models.OptionQuantity{{Name: "S", Quantity: 1}},
		BroadcastID: &broadcastID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := env.products.stockOf(1, "S"); got != 1 {
		t.Errorf("S stock = %d, want 1", got)
	}
}

func placeOrder(t *testing.T, env *orderEnv) models.Order {
	t.Helper()
	w := doJSON(env.router, http.MethodPost, "/orders", models.PlaceOrderRequest{
		ProductID: 1,
		Options:   []models.OptionQuantity{{Name: "S", Quantity: 1}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("place status = %d, body %s", w.Code, w.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	return order
}

func TestCancel_OpensReturnFlow(t *testing.T) {
	env := newOrderEnv(testBuyerID)
	order := placeOrder(t, env)

	w := doJSON(env.router, http.MethodPost, "/orders/1/cancel", models.CancelOrderRequest{Reason: "changed my mind"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var ret models.Return
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &ret); err != nil {
		t.Fatalf("decode return: %v", err)
	}
	if ret.Status != models.ReturnRequest {
		t.Errorf("return status = %s, want REQUEST", ret.Status)
	}
	if ret.OrderID != order.ID {
		t.Errorf("return order id = %d", ret.OrderID)
	}
	if ret.BankName != "KB" || ret.AccountNum != "110-222" {
		t.Errorf("refund account not copied: %+v", ret)
	}

	got, _ := env.orders.GetByID(order.ID)
	if got.Status != models.OrderCancelRequest {
		t.Errorf("order status = %s, want CANCEL_REQUEST", got.Status)
	}

	// second cancel conflicts
	w = doJSON(env.router, http.MethodPost, "/orders/1/cancel", models.CancelOrderRequest{Reason: "again"})
	if w.Code != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", w.Code)
	}
	if msg := decodeEnvelope(t, w).Message; msg != "already cancel" {
		t.Errorf("message = %q", msg)
	}
}

// sellerRouterFor exposes the seller-side endpoints over the same stores.
func sellerRouterFor(env *orderEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewOrderHandler(env.orders, env.products, newFakeUsers(models.User{ID: testSellerID, Name: "Jin's Shop"}), env.cache)
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("user_id", testSellerID) })
	router.PATCH("/orders/:id/status", h.Fulfil)
	router.PATCH("/seller/returns/:id", h.ResolveReturn)
	router.GET("/seller/returns", h.ListReturns)
	return router
}

func TestFulfil_CreatesDelivery(t *testing.T) {
	env := newOrderEnv(testBuyerID)
	order := placeOrder(t, env)
	seller := sellerRouterFor(env)

	w := doJSON(seller, http.MethodPatch, "/orders/1/status", models.OrderStatusRequest{Status: models.OrderDone})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var delivery models.Delivery
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &delivery); err != nil {
		t.Fatalf("decode delivery: %v", err)
	}
	if delivery.Status != models.DeliveryReady {
		t.Errorf("delivery status = %s, want READY", delivery.Status)
	}
	if delivery.RecipientName != "Buyer Kim" {
		t.Errorf("recipient = %s", delivery.RecipientName)
	}

	got, _ := env.orders.GetByID(order.ID)
	if got.Status != models.OrderDone {
		t.Errorf("order status = %s, want DONE", got.Status)
	}

	// marking the same order twice conflicts, one delivery only
	w = doJSON(seller, http.MethodPatch, "/orders/1/status", models.OrderStatusRequest{Status: models.OrderDone})
	if w.Code != http.StatusConflict {
		t.Fatalf("second fulfil status = %d, want 409", w.Code)
	}
}

func TestFulfil_RejectsOtherStatuses(t *testing.T) {
	env := newOrderEnv(testBuyerID)
	placeOrder(t, env)
	seller := sellerRouterFor(env)

	w := doJSON(seller, http.MethodPatch, "/orders/1/status", models.OrderStatusRequest{Status: models.OrderCancel})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestResolveReturn_MapsOrderStatus(t *testing.T) {
	tests := []struct {
		name      string
		resolve   models.ReturnStatus
		wantOrder models.OrderStatus
	}{
		{"Return completed moves order to CANCEL", models.ReturnDone, models.OrderCancel},
		{"Request withdrawn moves order to CANCEL_CANCEL", models.ReturnCancel, models.OrderCancelCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newOrderEnv(testBuyerID)
			order := placeOrder(t, env)
			if w := doJSON(env.router, http.MethodPost, "/orders/1/cancel", models.CancelOrderRequest{Reason: "no"}); w.Code != http.StatusOK {
				t.Fatalf("cancel status = %d", w.Code)
			}
			seller := sellerRouterFor(env)

			w := doJSON(seller, http.MethodPatch, "/seller/returns/2", models.ReturnStatusRequest{Status: tt.resolve})
			if w.Code != http.StatusOK {
				t.Fatalf("resolve status = %d, body %s", w.Code, w.Body.String())
			}

			got, _ := env.orders.GetByID(order.ID)
			if got.Status != tt.wantOrder {
				t.Errorf("order status = %s, want %s", got.Status, tt.wantOrder)
			}

			// settling the same return again conflicts
			w = doJSON(seller, http.MethodPatch, "/seller/returns/2", models.ReturnStatusRequest{Status: tt.resolve})
			if w.Code != http.StatusConflict {
				t.Fatalf("second resolve status = %d, want 409", w.Code)
			}
		})
	}
}
