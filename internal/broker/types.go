package broker

import (
	"context"
)

// Producer appends serialized envelopes to a named topic on one broker
// endpoint. Implementations hold a long-lived connection reused across
// calls.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

// Factory creates a producer for a bootstrap endpoint. The pipeline
// creates producers lazily, on a team's first delivery.
type Factory func(bootstrap string) Producer
