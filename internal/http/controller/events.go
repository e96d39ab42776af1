package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"oceancare/internal/config"
	"oceancare/internal/domain"
	"oceancare/internal/http/dto"
	"oceancare/internal/http/resp"
	"oceancare/internal/hub"
	"oceancare/internal/queue"
	"oceancare/internal/queue/rabbitmq"
	"oceancare/internal/service/relay"
)

const defaultHeartbeat = 15 * time.Second

type Handler struct {
	cfg      *config.Config
	relay    *relay.Service
	hub      *hub.Hub
	log      *zap.Logger
	pub      queue.Publisher
	upgrader websocket.Upgrader
}

func NewHandler(cfg *config.Config, relay *relay.Service, hub *hub.Hub, logger *zap.Logger, publisher queue.Publisher) *Handler {
	return &Handler{
		cfg:   cfg,
		relay: relay,
		hub:   hub,
		log:   logger,
		pub:   publisher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The clinic frontend is served from its own origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// BroadcastEvent validates a room event and delivers it right away.
func (h *Handler) BroadcastEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid json"})
		return
	}
	event := req.RoomEvent()
	if err := h.relay.Broadcast(c.Request.Context(), event); err != nil {
		if domain.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: err.Error()})
			return
		}
		h.log.Error("broadcast event failed",
			zap.String("room", event.Room),
			zap.String("event", event.Event),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to broadcast event"})
		return
	}
	c.JSON(http.StatusAccepted, dto.StatusResponse{Code: resp.CodeBroadcast, Message: "broadcast"})
}

// PublishEvent validates a room event and queues it on RabbitMQ, where the
// consumer of every gateway instance picks it up.
func (h *Handler) PublishEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid json"})
		return
	}
	event := req.RoomEvent()
	if err := relay.Validate(event); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: err.Error()})
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("publish payload marshal failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to publish event"})
		return
	}

	routingKey := queue.RoutingKey(h.cfg.RabbitPublishPrefix, event.Event)
	if err := h.pub.Publish(c.Request.Context(), payload, routingKey); err != nil {
		if errors.Is(err, rabbitmq.ErrPublisherDisabled) {
			c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Code: resp.CodeUnavailable, Message: "broker not configured"})
			return
		}
		h.log.Error("publish event failed",
			zap.String("room", event.Room),
			zap.String("event", event.Event),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to publish event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.StatusResponse{Code: resp.CodeQueued, Message: "queued"})
}

func (h *Handler) heartbeat() time.Duration {
	if h.cfg.SSEHeartbeat > 0 {
		return h.cfg.SSEHeartbeat
	}
	return defaultHeartbeat
}

func (h *Handler) clientBuffer() int {
	if h.cfg.ClientBuffer > 0 {
		return h.cfg.ClientBuffer
	}
	return 16
}
