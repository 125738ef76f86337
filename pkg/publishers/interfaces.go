package publishers

import (
	"context"

	"github.com/samvad-hq/samvad-http-facade/pkg/httpclient"
)

// Publisher sends outcome events to a downstream sink (SQS, SNS, Pub/Sub, HTTP).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Deps carries shared collaborators handed to every publisher builder.
type Deps struct {
	Log Logger
	// HTTP delivers events for http sinks and is required when one is configured.
	HTTP httpclient.Client
}

func (d Deps) logger() Logger { return ensureLogger(d.Log) }
