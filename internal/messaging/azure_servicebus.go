package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orders/config"
)

// Publisher sends JSON messages to a Service Bus queue.
type Publisher interface {
	SendJSON(ctx context.Context, queueName string, body interface{}) error
	Close() error
}

// MessageHandler processes a single received message body. Returning an error
// abandons the message so Service Bus redelivers it.
type MessageHandler func(ctx context.Context, body []byte) error

// AzureServiceBus wraps the Azure Service Bus client for both publishing and
// queue processing.
type AzureServiceBus struct {
	client *azservicebus.Client
}

// NewAzureServiceBus creates a new Azure Service Bus client
func NewAzureServiceBus(cfg config.AzureConfig) (*AzureServiceBus, error) {
	if cfg.ConnStr == "" {
		return nil, fmt.Errorf("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	return &AzureServiceBus{client: client}, nil
}

// SendJSON marshals body and sends it to the named queue
func (b *AzureServiceBus) SendJSON(ctx context.Context, queueName string, body interface{}) error {
	sender, err := b.client.NewSender(queueName, nil)
	if err != nil {
		return fmt.Errorf("failed to create sender for queue %s: %w", queueName, err)
	}
	defer sender.Close(ctx)

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": "orders-service",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	return sender.SendMessage(ctx, msg, nil)
}

// ProcessMessages receives messages from the queue in PeekLock mode and hands
// each to the handler until the context is cancelled. Messages are completed
// on success and abandoned on handler error so they can be redelivered.
func (b *AzureServiceBus) ProcessMessages(ctx context.Context, queueName string, handler MessageHandler) error {
	receiver, err := b.client.NewReceiverForQueue(queueName, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return fmt.Errorf("failed to create receiver for queue %s: %w", queueName, err)
	}
	defer receiver.Close(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("queue", queueName).Msg("failed to receive messages")
			time.Sleep(5 * time.Second)
			continue
		}

		for _, message := range messages {
			if err := handler(ctx, message.Body); err != nil {
				log.Error().Err(err).
					Str("queue", queueName).
					Str("message_id", message.MessageID).
					Msg("message handler failed, abandoning message")
				if abandonErr := receiver.AbandonMessage(ctx, message, nil); abandonErr != nil {
					log.Error().Err(abandonErr).Msg("failed to abandon message")
				}
				continue
			}

			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).
					Str("message_id", message.MessageID).
					Msg("failed to complete message")
			}
		}
	}
}

// Close closes the Service Bus client
func (b *AzureServiceBus) Close() error {
	if b.client != nil {
		return b.client.Close(context.Background())
	}
	return nil
}
