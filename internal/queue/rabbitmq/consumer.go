package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"oceancare/internal/config"
	"oceancare/internal/domain"
	"oceancare/internal/model"
	"oceancare/internal/queue"
)

const tracerName = "rabbitmq"

type noopConsumer struct {
	logger *zap.Logger
}

func (n *noopConsumer) Start(ctx context.Context) error {
	n.logger.Info("RabbitMQ not configured, broker ingest disabled")
	<-ctx.Done()
	return ctx.Err()
}

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = 2 * time.Second
)

// Consumer feeds room events published by the clinic backend into the relay.
// A lost broker connection is redialed at a fixed delay; Start gives up after
// reconnectAttempts consecutive sessions end without consuming.
type Consumer struct {
	url               string
	relay             queue.Relay
	logger            *zap.Logger
	exchange          string
	queue             string
	routingKey        string
	consumerTag       string
	reconnectAttempts int
	reconnectDelay    time.Duration
	dial              func(url string) (*amqp.Connection, error)
}

func NewConsumer(cfg *config.Config, relay queue.Relay, logger *zap.Logger) queue.Consumer {
	if cfg.RabbitMQURL == "" {
		return &noopConsumer{logger: logger}
	}
	return &Consumer{
		url:               cfg.RabbitMQURL,
		relay:             relay,
		logger:            logger,
		exchange:          cfg.RabbitExchange,
		queue:             cfg.RabbitQueue,
		routingKey:        cfg.RabbitRoutingKey,
		consumerTag:       cfg.RabbitConsumerTag,
		reconnectAttempts: cfg.RabbitReconnectAttempts,
		reconnectDelay:    cfg.RabbitReconnectDelay,
		dial:              amqp.Dial,
	}
}

func (r *Consumer) Start(ctx context.Context) error {
	attempts, delay := r.reconnectAttempts, r.reconnectDelay
	if attempts <= 0 {
		attempts = defaultReconnectAttempts
	}
	if delay <= 0 {
		delay = defaultReconnectDelay
	}

	failures := 0
	for {
		consumed, err := r.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if consumed {
			failures = 0
		}
		failures++
		r.logger.Warn("RabbitMQ consumer session ended",
			zap.Int("attempt", failures),
			zap.Error(err),
		)
		if failures >= attempts {
			return fmt.Errorf("rabbitmq reconnect attempts exhausted: %w", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// consume runs one broker session. It reports whether deliveries started
// flowing before the session ended.
func (r *Consumer) consume(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rabbitmq.consume_loop")
	span.SetAttributes(r.attributes(r.routingKey)...)
	defer span.End()

	fail := func(stage string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage+" failed")
		return fmt.Errorf("rabbitmq %s: %w", stage, err)
	}

	dial := r.dial
	if dial == nil {
		dial = amqp.Dial
	}
	conn, err := dial(r.url)
	if err != nil {
		return false, fail("dial", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return false, fail("channel", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		return false, fail("qos", err)
	}
	if err := declareExchange(ch, r.exchange); err != nil {
		return false, fail("exchange declare", err)
	}
	queueInfo, err := ch.QueueDeclare(r.queue, true, false, false, false, nil)
	if err != nil {
		return false, fail("queue declare", err)
	}
	if err := ch.QueueBind(queueInfo.Name, r.routingKey, r.exchange, false, nil); err != nil {
		return false, fail("queue bind", err)
	}
	deliveries, err := ch.Consume(queueInfo.Name, r.consumerTag, false, false, false, false, nil)
	if err != nil {
		return false, fail("consume", err)
	}

	r.logger.Info("RabbitMQ consumer started",
		zap.String("exchange", r.exchange),
		zap.String("queue", queueInfo.Name),
		zap.String("routing_key", r.routingKey),
	)

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				span.SetStatus(codes.Error, "deliveries closed")
				return true, errors.New("rabbitmq deliveries closed")
			}
			if err := r.handleMessage(ctx, msg); err != nil {
				span.RecordError(err)
				return true, err
			}
		}
	}
}

func (r *Consumer) attributes(routingKey string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", r.exchange),
		attribute.String("messaging.destination_kind", "exchange"),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
	}
}

// handleMessage acks events that can never be delivered and nacks with
// requeue when the relay fails for any other reason. The returned error is
// only for ack failures, which end the consume loop.
func (r *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx = otel.GetTextMapPropagator().Extract(ctx, amqpHeaderCarrier(msg.Headers))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rabbitmq.handle_message",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	span.SetAttributes(r.attributes(msg.RoutingKey)...)
	defer span.End()

	var event model.RoomEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid json")
		r.logger.Error("rabbitmq invalid json", zap.Error(err))
		return msg.Ack(false)
	}
	span.SetAttributes(
		attribute.String("oceancare.room", event.Room),
		attribute.String("oceancare.event", event.Event),
	)

	relayCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.relay.Broadcast(relayCtx, event); err != nil {
		span.RecordError(err)
		if domain.IsValidationError(err) {
			span.SetStatus(codes.Error, "invalid event")
			r.logger.Warn("rabbitmq dropping invalid event",
				zap.String("room", event.Room),
				zap.String("event", event.Event),
				zap.Error(err),
			)
			return msg.Ack(false)
		}
		span.SetStatus(codes.Error, "relay failed")
		r.logger.Error("rabbitmq relay failed", zap.Error(err))
		if nackErr := msg.Nack(false, true); nackErr != nil {
			r.logger.Error("rabbitmq nack failed", zap.Error(nackErr))
		}
		return nil
	}
	return msg.Ack(false)
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
}
