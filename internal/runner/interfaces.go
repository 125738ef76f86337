package runner

import (
	"context"

	"github.com/samvad-hq/samvad-http-facade/pkg/publishers"
)

// EventPublisher publishes outcome events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
