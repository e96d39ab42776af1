package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"oceancare/internal/domain"
	"oceancare/internal/model"
)

type relayMock struct {
	mock.Mock
}

func (m *relayMock) Broadcast(ctx context.Context, e model.RoomEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type ackMock struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackMock) Ack(_ uint64, _ bool) error {
	a.acked++
	return nil
}

func (a *ackMock) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackMock) Reject(_ uint64, _ bool) error {
	return nil
}

func TestConsumerHandleMessage(t *testing.T) {
	t.Run("invalid json is acked and dropped", func(t *testing.T) {
		relay := &relayMock{}
		consumer := &Consumer{relay: relay, logger: zap.NewNop()}
		ack := &ackMock{}

		err := consumer.handleMessage(context.Background(), amqp.Delivery{
			Body:         []byte("{bad json"),
			Acknowledger: ack,
		})
		require.NoError(t, err)
		require.Equal(t, 1, ack.acked)
		require.Equal(t, 0, ack.nacked)
		relay.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})

	rejected := []error{
		domain.ErrInvalidRoom,
		domain.ErrUnknownEvent,
		domain.ErrMissingField,
		domain.ErrInvalidStatus,
	}
	for _, cause := range rejected {
		t.Run("rejected: "+cause.Error(), func(t *testing.T) {
			relay := &relayMock{}
			relay.On("Broadcast", mock.Anything, mock.Anything).Return(fmt.Errorf("validate: %w", cause)).Once()
			consumer := &Consumer{relay: relay, logger: zap.NewNop()}
			ack := &ackMock{}

			err := consumer.handleMessage(context.Background(), amqp.Delivery{
				Body:         []byte(`{"room":"lobby","event":"queue-called","message":"m"}`),
				Acknowledger: ack,
			})
			require.NoError(t, err)
			require.Equal(t, 1, ack.acked)
			require.Equal(t, 0, ack.nacked)
			relay.AssertExpectations(t)
		})
	}

	t.Run("relay error -> nack", func(t *testing.T) {
		relay := &relayMock{}
		relay.On("Broadcast", mock.Anything, mock.Anything).Return(errors.New("hub gone")).Once()
		consumer := &Consumer{relay: relay, logger: zap.NewNop()}
		ack := &ackMock{}

		err := consumer.handleMessage(context.Background(), amqp.Delivery{
			Body:         []byte(`{"room":"doctor","event":"queue-called","message":"m"}`),
			Acknowledger: ack,
		})
		require.NoError(t, err)
		require.Equal(t, 0, ack.acked)
		require.Equal(t, 1, ack.nacked)
		require.True(t, ack.requeue)
		relay.AssertExpectations(t)
	})

	t.Run("success -> ack", func(t *testing.T) {
		relay := &relayMock{}
		relay.On("Broadcast", mock.Anything, mock.MatchedBy(func(e model.RoomEvent) bool {
			return e.Room == "patient-p1" && e.Event == domain.EventNameStatusUpdate && e.Message == "Accepted"
		})).Return(nil).Once()
		consumer := &Consumer{relay: relay, logger: zap.NewNop()}
		ack := &ackMock{}

		err := consumer.handleMessage(context.Background(), amqp.Delivery{
			Body:         []byte(`{"room":"patient-p1","event":"registration-status-update","message":"Accepted","data":{"registrationId":"r1","status":"ACCEPTED"}}`),
			Acknowledger: ack,
		})
		require.NoError(t, err)
		require.Equal(t, 1, ack.acked)
		require.Equal(t, 0, ack.nacked)
		relay.AssertExpectations(t)
	})
}

func TestConsumerExtractsTraceContext(t *testing.T) {
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID := "4bf92f3577b34da6a3ce929d0e0e4736"
	headers := amqp.Table{"traceparent": "00-" + traceID + "-00f067aa0ba902b7-01"}

	var seen trace.TraceID
	relay := &relayMock{}
	relay.On("Broadcast", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		seen = trace.SpanContextFromContext(args.Get(0).(context.Context)).TraceID()
	}).Once()
	consumer := &Consumer{relay: relay, logger: zap.NewNop()}

	err := consumer.handleMessage(context.Background(), amqp.Delivery{
		Headers:      headers,
		Body:         []byte(`{"room":"doctor","event":"queue-called","message":"m"}`),
		Acknowledger: &ackMock{},
	})
	require.NoError(t, err)
	require.Equal(t, traceID, seen.String())
}

func TestConsumerRedial(t *testing.T) {
	refused := errors.New("connection refused")

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		var dials atomic.Int32
		consumer := &Consumer{
			url:               "amqp://broker",
			logger:            zap.NewNop(),
			reconnectAttempts: 3,
			reconnectDelay:    time.Millisecond,
			dial: func(string) (*amqp.Connection, error) {
				dials.Add(1)
				return nil, refused
			},
		}

		err := consumer.Start(context.Background())
		require.ErrorIs(t, err, refused)
		require.Equal(t, int32(3), dials.Load())
	})

	t.Run("cancel stops the redial wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		consumer := &Consumer{
			url:               "amqp://broker",
			logger:            zap.NewNop(),
			reconnectAttempts: 10,
			reconnectDelay:    time.Hour,
			dial: func(string) (*amqp.Connection, error) {
				cancel()
				return nil, refused
			},
		}

		errCh := make(chan error, 1)
		go func() { errCh <- consumer.Start(ctx) }()
		select {
		case err := <-errCh:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatalf("consumer did not stop")
		}
	})
}

func TestHeaderCarrier(t *testing.T) {
	c := amqpHeaderCarrier(amqp.Table{"a": "x", "b": []byte("y"), "n": int32(3)})
	require.Equal(t, "x", c.Get("a"))
	require.Equal(t, "y", c.Get("b"))
	require.Equal(t, "3", c.Get("n"))
	require.Equal(t, "", c.Get("missing"))

	c.Set("traceparent", "v")
	require.Equal(t, "v", c.Get("traceparent"))
	require.ElementsMatch(t, []string{"a", "b", "n", "traceparent"}, c.Keys())
}
