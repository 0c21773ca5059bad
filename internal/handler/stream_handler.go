package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/campusctl/edt-api/internal/service"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes committed occupancy mutations over a websocket.
type StreamHandler struct {
	feed *service.ChangeFeedService
}

// NewStreamHandler constructs the handler.
func NewStreamHandler(feed *service.ChangeFeedService) *StreamHandler {
	return &StreamHandler{feed: feed}
}

// Stream godoc
// @Summary Live occupancy mutation stream
// @Description Upgrades to a websocket and pushes one JSON change entry per
// @Description committed mutation. Slow consumers are disconnected.
// @Tags ChangeFeed
// @Router /occupancies/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}
	defer conn.Close() //nolint:errcheck

	entries, cancel := h.feed.Subscribe()
	defer cancel()

	// Drain reads so client close frames and pongs are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)) //nolint:errcheck
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
