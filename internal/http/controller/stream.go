package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"oceancare/internal/domain"
	"oceancare/internal/http/dto"
	"oceancare/internal/http/resp"
	"oceancare/internal/hub"
)

// Stream is a read-only SSE view of one room for clients that cannot hold a
// websocket. Each frame becomes an SSE event named after the domain event.
func (h *Handler) Stream(c *gin.Context) {
	room := c.Param("room")
	if !domain.IsValidRoom(room) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid room"})
		return
	}
	if _, ok := c.Writer.(http.Flusher); !ok {
		h.log.Error("streaming unsupported", zap.String("room", room))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	client := hub.NewClient(uuid.NewString(), h.clientBuffer())
	h.hub.Register(client)
	h.hub.Join(client, room)
	defer h.hub.Unregister(client)

	heartbeat := time.NewTicker(h.heartbeat())
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				h.log.Warn("heartbeat write failed", zap.String("room", room), zap.Error(err))
				return
			}
			c.Writer.Flush()
		case frame, ok := <-client.Ch:
			if !ok {
				return
			}
			c.SSEvent(frame.Event, frame.Data)
			c.Writer.Flush()
		}
	}
}
