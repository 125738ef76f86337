package publishers

import (
	"strconv"
	"time"

	"github.com/samvad-hq/samvad-http-facade/internal/domain"
	"github.com/samvad-hq/samvad-http-facade/pkg/httpclient"
)

// Event represents the payload published downstream.
type Event struct {
	Source    string         `json:"source"`
	Outcome   domain.Outcome `json:"outcome"`
	EmittedAt time.Time      `json:"emitted_at"`
}

// NewEvent constructs an Event for the given outcome.
func NewEvent(source string, outcome domain.Outcome) Event {
	return Event{
		Source:    source,
		Outcome:   outcome,
		EmittedAt: time.Now().UTC(),
	}
}

// Attributes are the routing attributes attached to queue and topic messages.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"request_id": e.Outcome.RequestID,
		"succeeded":  strconv.FormatBool(e.Outcome.Succeeded),
	}
}

// Params renders the event as facade params for http sinks.
func (e Event) Params() httpclient.Params {
	p := httpclient.Params{
		"source":       e.Source,
		"emitted_at":   e.EmittedAt.Format(time.RFC3339Nano),
		"request_id":   e.Outcome.RequestID,
		"method":       e.Outcome.Method,
		"url":          e.Outcome.URL,
		"succeeded":    e.Outcome.Succeeded,
		"body_bytes":   e.Outcome.BodyBytes,
		"elapsed_ms":   e.Outcome.ElapsedMs,
		"completed_at": e.Outcome.CompletedAt.Format(time.RFC3339Nano),
	}
	if e.Outcome.StatusCode != 0 {
		p["status_code"] = e.Outcome.StatusCode
	}
	if e.Outcome.ErrorKind != "" {
		p["error_kind"] = e.Outcome.ErrorKind
		p["error"] = e.Outcome.Error
	}
	if e.Outcome.Meta != nil {
		p["meta"] = e.Outcome.Meta
	}
	return p
}
