package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotifier_Send(t *testing.T) {
	var got Message
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, "gw-key", "LiveShop")
	ok := n.Send(Message{
		Title:      "hello",
		Body:       "world",
		Recipients: []Recipient{{UserID: 1}},
	})

	if !ok {
		t.Fatal("expected send to succeed")
	}
	if gotKey != "gw-key" {
		t.Errorf("api key = %s", gotKey)
	}
	if got.Sender != "LiveShop" {
		t.Errorf("sender = %s, want default LiveShop", got.Sender)
	}
	if got.BatchID == "" {
		t.Error("expected a generated batch id")
	}
	if len(got.Recipients) != 1 || got.Recipients[0].UserID != 1 {
		t.Errorf("recipients = %+v", got.Recipients)
	}
}

func TestNotifier_SendGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, "gw-key", "LiveShop")
	if n.Send(Message{Title: "x"}) {
		t.Error("expected send to report failure")
	}
}

func TestNotifier_SendWithoutGateway(t *testing.T) {
	n := NewNotifier("", "", "LiveShop")
	if n.Send(Message{Title: "x"}) {
		t.Error("expected send to report failure when no gateway is configured")
	}
}

func TestBroadcastStartMessage(t *testing.T) {
	msg := BroadcastStartMessage("Jin's Shop", "autumn drop", 55, []Recipient{{UserID: 2}, {UserID: 3}})

	if msg.Title != "Jin's Shop is live now" {
		t.Errorf("title = %q", msg.Title)
	}
	if len(msg.Buttons) != 1 || msg.Buttons[0].URL != "/live/55" {
		t.Errorf("buttons = %+v", msg.Buttons)
	}
	if len(msg.Recipients) != 2 {
		t.Errorf("recipients = %d, want 2", len(msg.Recipients))
	}
	if msg.BatchID == "" {
		t.Error("expected batch id")
	}
}

func TestSettlementMessage(t *testing.T) {
	msg := SettlementMessage("autumn drop", []Recipient{{UserID: 30}, {UserID: 31}})

	if len(msg.Recipients) != 2 {
		t.Errorf("recipients = %d, want 2", len(msg.Recipients))
	}
	if msg.Body != `"autumn drop" has ended. Your order is being prepared.` {
		t.Errorf("body = %q", msg.Body)
	}
}

func TestReconciliationMessage(t *testing.T) {
	msg := ReconciliationMessage(9, "autumn drop", 17, 43)

	if len(msg.Recipients) != 1 || msg.Recipients[0].UserID != 9 {
		t.Errorf("recipients = %+v", msg.Recipients)
	}
	if msg.Body != `"autumn drop" used 17 minutes. 43 minutes remain.` {
		t.Errorf("body = %q", msg.Body)
	}
}
