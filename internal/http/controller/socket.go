package controller

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"oceancare/internal/domain"
	"oceancare/internal/hub"
	"oceancare/internal/model"
)

const writeWait = 10 * time.Second

// Socket upgrades to a websocket, greets the client with its socket id and
// then serves join-room / leave-room frames until the client goes away.
func (h *Handler) Socket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	client := hub.NewClient(uuid.NewString(), h.clientBuffer())
	logger := h.log.With(zap.String("socket_id", client.ID))
	h.hub.Register(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeFrames(conn, client, logger)
	}()

	h.readFrames(conn, client, logger)
	h.hub.Unregister(client)
	<-done
	logger.Info("socket disconnected")
}

func (h *Handler) readFrames(conn *websocket.Conn, client *hub.Client, logger *zap.Logger) {
	idle := 2 * h.heartbeat()
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("socket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(idle))

		var frame model.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Debug("ignoring malformed frame", zap.Error(err))
			continue
		}
		switch frame.Event {
		case model.EventJoinRoom, model.EventLeaveRoom:
			var room string
			if err := json.Unmarshal(frame.Data, &room); err != nil || !domain.IsValidRoom(room) {
				logger.Warn("ignoring membership change", zap.String("event", frame.Event), zap.ByteString("data", frame.Data))
				continue
			}
			if frame.Event == model.EventJoinRoom {
				h.hub.Join(client, room)
			} else {
				h.hub.Leave(client, room)
			}
			logger.Info(frame.Event, zap.String("room", room))
		default:
			logger.Debug("ignoring client event", zap.String("event", frame.Event))
		}
	}
}

// writeFrames is the only writer on conn. It returns when the hub closes the
// client channel or a write fails. A failed write closes conn so the reader
// unblocks too.
func (h *Handler) writeFrames(conn *websocket.Conn, client *hub.Client, logger *zap.Logger) {
	ticker := time.NewTicker(h.heartbeat())
	defer ticker.Stop()

	hello, err := model.NewFrame(model.EventConnect, model.ConnectData{SocketID: client.ID})
	if err == nil {
		err = writeFrame(conn, hello)
	}
	if err != nil {
		logger.Warn("connect frame failed", zap.Error(err))
		_ = conn.Close()
		return
	}
	logger.Info("socket connected")

	for {
		select {
		case frame, ok := <-client.Ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			if err := writeFrame(conn, frame); err != nil {
				logger.Warn("socket write failed", zap.String("event", frame.Event), zap.Error(err))
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Warn("socket ping failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame model.Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
