package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr            string
	GinMode             string
	LogFile             string
	RabbitMQURL         string
	RabbitExchange      string
	RabbitQueue         string
	RabbitRoutingKey    string
	RabbitConsumerTag   string
	RabbitPublishPrefix string
	// Consecutive broker sessions that may fail before the consumer gives up.
	RabbitReconnectAttempts int
	RabbitReconnectDelay    time.Duration
	SSEHeartbeat            time.Duration
	ClientBuffer            int
	OTELServiceName         string
	OTLPEndpoint            string
	OTLPInsecure            bool

	// Client session settings, read by cmd/notifier.
	SocketURL         string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReadTimeout       time.Duration
	SessionUserID     string
	SessionRole       string
	DesktopAlerts     bool
	AlertQueueSize    int
}

func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:                ":8080",
		LogFile:                 "logs/app.log",
		SSEHeartbeat:            15 * time.Second,
		ClientBuffer:            16,
		RabbitExchange:          "oceancare.events",
		RabbitQueue:             "oceancare.gateway",
		RabbitRoutingKey:        "event.*",
		RabbitConsumerTag:       "gateway-consumer",
		RabbitPublishPrefix:     "event",
		RabbitReconnectAttempts: 5,
		RabbitReconnectDelay:    2 * time.Second,
		OTELServiceName:         "oceancare-gateway",
		OTLPInsecure:            true,
		SocketURL:               "http://localhost:8080",
		ReconnectAttempts:       5,
		ReconnectDelay:          time.Second,
		ReadTimeout:             30 * time.Second,
		DesktopAlerts:           true,
		AlertQueueSize:          32,
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.GinMode = os.Getenv("GIN_MODE")
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")
	if v := os.Getenv("RABBITMQ_EXCHANGE"); v != "" {
		cfg.RabbitExchange = v
	}
	if v := os.Getenv("RABBITMQ_QUEUE"); v != "" {
		cfg.RabbitQueue = v
	}
	if v := os.Getenv("RABBITMQ_ROUTING_KEY"); v != "" {
		cfg.RabbitRoutingKey = v
	}
	if v := os.Getenv("RABBITMQ_CONSUMER_TAG"); v != "" {
		cfg.RabbitConsumerTag = v
	}
	if v := os.Getenv("RABBITMQ_PUBLISH_PREFIX"); v != "" {
		cfg.RabbitPublishPrefix = v
	}
	if v := os.Getenv("RABBITMQ_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RabbitReconnectAttempts = n
		}
	}
	if v := os.Getenv("RABBITMQ_RECONNECT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RabbitReconnectDelay = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.OTELServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OTLPInsecure = b
		}
	}

	if v := os.Getenv("SSE_HEARTBEAT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSEHeartbeat = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CLIENT_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClientBuffer = n
		}
	}

	if v := os.Getenv("SOCKET_URL"); v != "" {
		cfg.SocketURL = v
	} else if v := os.Getenv("VITE_API_URL"); v != "" {
		cfg.SocketURL = v
	}
	if v := os.Getenv("RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectAttempts = n
		}
	}
	if v := os.Getenv("RECONNECT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("SOCKET_READ_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReadTimeout = time.Duration(n) * time.Millisecond
		}
	}
	cfg.SessionUserID = os.Getenv("SESSION_USER_ID")
	cfg.SessionRole = os.Getenv("SESSION_ROLE")
	if v := os.Getenv("DESKTOP_ALERTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DesktopAlerts = b
		}
	}
	if v := os.Getenv("ALERT_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AlertQueueSize = n
		}
	}

	return cfg
}
