package broker

import (
	"context"
	"encoding/json"
	"testing"

	"rewear/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageFor(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessageRoutesPaymentCaptured(t *testing.T) {
	handler := NewEventHandler()

	var got *models.PaymentCapturedEvent
	handler.OnPaymentCaptured(func(ctx context.Context, e *models.PaymentCapturedEvent) error {
		got = e
		return nil
	})

	msg := messageFor(t, &models.PaymentCapturedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypePaymentCaptured,
		},
		OrderID: 7,
		Amount:  1050,
		Method:  models.PaymentMethodRazorpay,
	})

	err := handler.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.OrderID)
	assert.Equal(t, int64(1050), got.Amount)
}

func TestHandleMessageRoutesPaymentFailed(t *testing.T) {
	handler := NewEventHandler()

	var got *models.PaymentFailedEvent
	handler.OnPaymentFailed(func(ctx context.Context, e *models.PaymentFailedEvent) error {
		got = e
		return nil
	})

	msg := messageFor(t, &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypePaymentFailed,
		},
		OrderID: 9,
		Reason:  "signature mismatch",
	})

	err := handler.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.OrderID)
	assert.Equal(t, "signature mismatch", got.Reason)
}

func TestHandleMessageIgnoresUnknownEvents(t *testing.T) {
	handler := NewEventHandler()

	called := false
	handler.OnPaymentCaptured(func(ctx context.Context, e *models.PaymentCapturedEvent) error {
		called = true
		return nil
	})

	msg := messageFor(t, &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-3",
			EventType: models.EventTypeOrderCreated,
		},
		OrderID: 11,
	})

	err := handler.HandleMessage(context.Background(), msg)
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestHandleMessageRejectsMalformedPayload(t *testing.T) {
	handler := NewEventHandler()

	err := handler.HandleMessage(context.Background(), kafka.Message{
		Value: []byte("not json"),
	})
	assert.Error(t, err)
}
