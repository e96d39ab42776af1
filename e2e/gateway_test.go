package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"oceancare/internal/config"
	httpserver "oceancare/internal/http"
	"oceancare/internal/http/controller"
	"oceancare/internal/hub"
	"oceancare/internal/metrics"
	"oceancare/internal/queue"
	"oceancare/internal/queue/rabbitmq"
	"oceancare/internal/service/relay"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

func ginTestMode() {
	gin.SetMode(gin.TestMode)
}

type gateway struct {
	server *httptest.Server
	hub    *hub.Hub
	relay  *relay.Service
}

// startGateway serves the full router from an httptest server. A nil
// publisher stands in for a gateway without a broker.
func startGateway(t *testing.T, cfg *config.Config, publisher queue.Publisher) *gateway {
	t.Helper()
	ginTestMode()

	if cfg == nil {
		cfg = &config.Config{SSEHeartbeat: 5 * time.Second, ClientBuffer: 16}
	}
	logger := zap.NewNop()
	if publisher == nil {
		publisher = rabbitmq.NewPublisher(cfg, logger)
	}

	m := metrics.New()
	h := hub.NewHub(m)
	svc := relay.NewService(h, logger)
	handler := controller.NewHandler(cfg, svc, h, logger, publisher)
	router := httpserver.NewRouter(cfg, handler, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &gateway{server: server, hub: h, relay: svc}
}

func (g *gateway) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(g.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (g *gateway) waitForMembers(t *testing.T, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return g.hub.RoomSize(room) == n }, waitFor, tick)
}

type sseEvent struct {
	name string
	data string
}

func readSSEEvent(body io.Reader, timeout time.Duration) (sseEvent, error) {
	reader := bufio.NewReader(body)
	type result struct {
		event sseEvent
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		var ev sseEvent
		var dataLines []string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				ch <- result{err: err}
				return
			}
			line = strings.TrimRight(line, "\r\n")
			switch {
			case line == "":
				if len(dataLines) > 0 {
					ev.data = strings.Join(dataLines, "\n")
					ch <- result{event: ev}
					return
				}
			case strings.HasPrefix(line, ":"):
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
	}()

	select {
	case res := <-ch:
		return res.event, res.err
	case <-time.After(timeout):
		return sseEvent{}, context.DeadlineExceeded
	}
}
