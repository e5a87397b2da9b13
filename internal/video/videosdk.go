package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL matches the streaming provider's expectation for API tokens.
const tokenTTL = 6 * time.Hour

// Broker acquires streaming rooms and mints access tokens against the
// external media provider.
type Broker struct {
	apiKey  string
	secret  []byte
	baseURL string
	client  *http.Client
}

func NewBroker(apiKey, secret, baseURL string, timeout time.Duration) *Broker {
	return &Broker{
		apiKey:  apiKey,
		secret:  []byte(secret),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type tokenClaims struct {
	APIKey        string   `json:"apikey"`
	Permissions   []string `json:"permissions"`
	Version       int      `json:"version"`
	RoomID        string   `json:"roomId,omitempty"`
	ParticipantID string   `json:"participantId,omitempty"`
	Roles         []string `json:"roles"`
	jwt.RegisteredClaims
}

func (b *Broker) signToken(claims tokenClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign video token: %w", err)
	}
	return signed, nil
}

// ServiceToken mints the server-side token used for room management calls.
func (b *Broker) ServiceToken() (string, error) {
	return b.signToken(tokenClaims{
		APIKey:      b.apiKey,
		Permissions: []string{"allow_join"},
		Version:     2,
		Roles:       []string{"crawler"},
	})
}

// JoinToken mints a participant token scoped to one room.
func (b *Broker) JoinToken(roomID, participantID string) (string, error) {
	return b.signToken(tokenClaims{
		APIKey:        b.apiKey,
		Permissions:   []string{"allow_join"},
		Version:       2,
		RoomID:        roomID,
		ParticipantID: participantID,
		Roles:         []string{"rtc"},
	})
}

// CreateRoom asks the provider for a room and returns its id. The call never
// fails: on any transport, status, or decode problem it logs the cause and
// returns preferredID, so a provider outage cannot block a session start.
func (b *Broker) CreateRoom(preferredID string) string {
	token, err := b.ServiceToken()
	if err != nil {
		log.Printf("video: token signing failed, using fallback room %s: %v", preferredID, err)
		return preferredID
	}

	body, err := json.Marshal(map[string]string{"customRoomId": preferredID})
	if err != nil {
		log.Printf("video: request encode failed, using fallback room %s: %v", preferredID, err)
		return preferredID
	}

	req, err := http.NewRequest(http.MethodPost, b.baseURL+"/v2/rooms", bytes.NewReader(body))
	if err != nil {
		log.Printf("video: request build failed, using fallback room %s: %v", preferredID, err)
		return preferredID
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		log.Printf("video: room request failed, using fallback room %s: %v", preferredID, err)
		return preferredID
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("video: room request returned %d, using fallback room %s", resp.StatusCode, preferredID)
		return preferredID
	}

	var result struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.RoomID == "" {
		log.Printf("video: room response decode failed, using fallback room %s: %v", preferredID, err)
		return preferredID
	}
	return result.RoomID
}

// SellerParticipantID names the host participant of a broadcast.
func SellerParticipantID(sellerID int64) string {
	return fmt.Sprintf("seller_%d", sellerID)
}

// ViewerParticipantID names a viewer participant of a broadcast.
func ViewerParticipantID(viewerID int64) string {
	return fmt.Sprintf("viewer_%d", viewerID)
}

// RoomFallbackID is the deterministic room id used when the provider cannot
// be reached.
func RoomFallbackID(broadcastID int64) string {
	return fmt.Sprintf("broadcast_%d", broadcastID)
}
