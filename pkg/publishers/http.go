package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/samvad-http-facade/pkg/httpclient"
)

type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  httpclient.Client
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, deps Deps) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	if deps.HTTP == nil {
		return nil, fmt.Errorf("publisher %q requires a shared http client", cfg.ID)
	}

	headers := make(map[string]string, len(cfg.HTTP.Headers)+1)
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}
	headers[httpclient.HeaderContentType] = httpclient.MIMEJSON

	return &httpPublisher{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: headers,
		client:  deps.HTTP,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish posts the event as a JSON object, or sends it as query parameters for GET sinks.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	var (
		resp *httpclient.Response
		err  error
	)
	if h.method == http.MethodGet {
		resp, err = h.client.Get(ctx, h.url, h.headers, evt.Params())
	} else {
		resp, err = h.client.Post(ctx, h.url, evt.Params(), h.headers)
	}
	if err != nil {
		if httpclient.IsStatus(err) && resp != nil {
			return fmt.Errorf("http response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
		}
		return fmt.Errorf("http request: %w", err)
	}
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
