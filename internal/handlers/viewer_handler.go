package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/models"
	"github.com/liveshop/backend/internal/video"
)

// ViewerHandler handles the viewer side of a live session
type ViewerHandler struct {
	broadcasts broadcastStore
	cache      sessionCache
	broker     roomBroker
}

func NewViewerHandler(broadcasts broadcastStore, cache sessionCache, broker roomBroker) *ViewerHandler {
	return &ViewerHandler{broadcasts: broadcasts, cache: cache, broker: broker}
}

type joinResponse struct {
	RoomID    string                  `json:"room_id"`
	Token     string                  `json:"token"`
	Title     string                  `json:"title"`
	SellerID  int64                   `json:"seller_id"`
	HLSURL    *string                 `json:"hls_url,omitempty"`
	MaxViewer int                     `json:"max_viewer"`
	Snapshot  *models.SessionSnapshot `json:"snapshot"`
}

// Join hands a viewer everything needed to watch: a participant token for
// the streaming room, the playback URL if the pipeline reported one, and the
// current session snapshot.
func (h *ViewerHandler) Join(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid broadcast id")
		return
	}

	b, err := h.broadcasts.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !b.IsLive() {
		respondFail(c, http.StatusConflict, "not start")
		return
	}
	if b.MeetingRoomID == nil {
		respondFail(c, http.StatusConflict, "not exist")
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

	token, err := h.broker.JoinToken(*b.MeetingRoomID, video.ViewerParticipantID(middleware.UserID(c)))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, joinResponse{
		RoomID:    *b.MeetingRoomID,
		Token:     token,
		Title:     b.Title,
		SellerID:  b.SellerID,
		HLSURL:    b.HLSURL,
		MaxViewer: b.MaxViewer,
		Snapshot:  snapshot,
	})
}
