package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Recipient identifies one notification target.
type Recipient struct {
	UserID int64  `json:"user_id"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Button is an optional call-to-action attached to a message.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Message is one outbound notification batch.
type Message struct {
	BatchID    string      `json:"batch_id"`
	Sender     string      `json:"sender"`
	Title      string      `json:"title"`
	Body       string      `json:"body"`
	Buttons    []Button    `json:"buttons,omitempty"`
	Recipients []Recipient `json:"recipients"`
}

// Notifier delivers messages through the external notification gateway.
// Delivery is best effort; a gateway outage never fails the calling
// operation.
type Notifier struct {
	gatewayURL string
	apiKey     string
	sender     string
	client     *http.Client
}

func NewNotifier(gatewayURL, apiKey, sender string) *Notifier {
	return &Notifier{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		sender:     sender,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one message batch to the gateway and reports success.
func (n *Notifier) Send(msg Message) bool {
	if n.gatewayURL == "" {
		return false
	}
	if msg.BatchID == "" {
		msg.BatchID = uuid.NewString()
	}
	if msg.Sender == "" {
		msg.Sender = n.sender
	}

	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("notify: encode failed for batch %s: %v", msg.BatchID, err)
		return false
	}

	req, err := http.NewRequest(http.MethodPost, n.gatewayURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("notify: request build failed for batch %s: %v", msg.BatchID, err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("notify: send failed for batch %s: %v", msg.BatchID, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("notify: gateway returned %d for batch %s", resp.StatusCode, msg.BatchID)
		return false
	}
	return true
}

// SendAsync delivers a message off the request path.
func (n *Notifier) SendAsync(msg Message) {
	go func() {
		if !n.Send(msg) {
			log.Printf("notify: async delivery failed: %s", msg.Title)
		}
	}()
}

// BroadcastStartMessage builds the fan-out sent to followers when a seller
// goes live.
func BroadcastStartMessage(sellerName, title string, broadcastID int64, recipients []Recipient) Message {
	return Message{
		BatchID:    uuid.NewString(),
		Title:      fmt.Sprintf("%s is live now", sellerName),
		Body:       title,
		Buttons:    []Button{{Label: "Watch", URL: fmt.Sprintf("/live/%d", broadcastID)}},
		Recipients: recipients,
	}
}

// SettlementMessage tells buyers of a finished broadcast that their orders
// move on to fulfilment.
func SettlementMessage(title string, recipients []Recipient) Message {
	return Message{
		BatchID:    uuid.NewString(),
		Title:      "Broadcast ended",
		Body:       fmt.Sprintf("%q has ended. Your order is being prepared.", title),
		Recipients: recipients,
	}
}

// ReconciliationMessage tells the seller how many minutes the finished
// session consumed and what remains on the meter.
func ReconciliationMessage(sellerID int64, title string, usedMinutes, remainMinutes int) Message {
	return Message{
		BatchID:    uuid.NewString(),
		Title:      "Broadcast ended",
		Body:       fmt.Sprintf("%q used %d minutes. %d minutes remain.", title, usedMinutes, remainMinutes),
		Recipients: []Recipient{{UserID: sellerID}},
	}
}
