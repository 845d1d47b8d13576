package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/live"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	defaultHeartbeat = 30 * time.Second
)

// LiveHandler serves the hub over SSE and websocket.
type LiveHandler struct {
	hub       *live.Hub
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

func NewLiveHandler(hub *live.Hub, heartbeat time.Duration) *LiveHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &LiveHandler{
		hub:       hub,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *LiveHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.sse)
	router.GET("/ws", h.ws)
}

func (h *LiveHandler) sse(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	err := live.Stream(c.Request.Context(), h.hub, h.heartbeat, func(frame []byte) error {
		if _, err := c.Writer.WriteString("data: " + string(frame) + "\n\n"); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("sse stream ended")
	}
}

func (h *LiveHandler) ws(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// The dashboard never sends anything; reading only detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	streamCtx, cancel := contextUntil(ctx, closed)
	defer cancel()

	err = live.Stream(streamCtx, h.hub, h.heartbeat, func(frame []byte) error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, frame)
	})
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("websocket stream ended")
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
}

// contextUntil derives a context that is also cancelled once done closes.
func contextUntil(parent context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
