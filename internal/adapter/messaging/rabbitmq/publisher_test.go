package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChannel is a mock implementation of the publishing side of an AMQP channel
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	ch := new(MockChannel)
	publisher := &Publisher{channel: ch, exchange: "transfer_events"}
	payload := []byte(`{"type":"transactioncomplete"}`)

	ch.On("PublishWithContext", ctx, "transfer_events", "Transaction_Complete_Management", false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			return msg.ContentType == "application/json" &&
				msg.DeliveryMode == amqp.Persistent &&
				string(msg.Body) == string(payload)
		})).Return(nil)

	err := publisher.Publish(ctx, "Transaction_Complete_Management", payload)

	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestPublish_ChannelError(t *testing.T) {
	ctx := context.Background()
	ch := new(MockChannel)
	publisher := &Publisher{channel: ch, exchange: "transfer_events"}

	ch.On("PublishWithContext", ctx, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(amqp.ErrClosed)

	err := publisher.Publish(ctx, "Transaction_Complete_Management", []byte("{}"))

	assert.True(t, errors.Is(err, amqp.ErrClosed))
}
