package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/hanko-field/ordersim/internal/services"
)

// DatasetGeneratedEvent is the value of the eventType attribute on completion messages.
const DatasetGeneratedEvent = "dataset.generated"

// PubSubDatasetPublisher announces completed dataset runs on a Pub/Sub topic.
type PubSubDatasetPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubDatasetPublisher constructs a Pub/Sub backed dataset event publisher.
func NewPubSubDatasetPublisher(topic *pubsub.Topic) (*PubSubDatasetPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub dataset publisher: topic is required")
	}
	return &PubSubDatasetPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishDatasetGenerated publishes the run summary and waits for the server acknowledgement.
func (p *PubSubDatasetPublisher) PublishDatasetGenerated(ctx context.Context, message services.DatasetGeneratedMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub dataset publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal dataset event: %w", err)
	}

	attrs := map[string]string{"eventType": DatasetGeneratedEvent}
	setAttr(attrs, "runId", message.RunID)
	setAttr(attrs, "seed", strconv.FormatInt(message.Seed, 10))
	setAttr(attrs, "orders", strconv.Itoa(message.Orders))
	setAttr(attrs, "startDate", message.StartDate)
	setAttr(attrs, "endDate", message.EndDate)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish dataset event: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages and releases the topic's goroutines.
func (p *PubSubDatasetPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
