package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/samvad-http-facade/internal/domain"
	"github.com/samvad-hq/samvad-http-facade/internal/logger"
	"github.com/samvad-hq/samvad-http-facade/internal/storage"
	"github.com/samvad-hq/samvad-http-facade/pkg/httpclient"
	"github.com/samvad-hq/samvad-http-facade/pkg/publishers"
)

// Service executes planned requests through the HTTP facade and reports outcomes.
type Service struct {
	client    httpclient.Client
	publisher EventPublisher
	journal   storage.Journal
	log       logger.Logger
	source    string
}

// NewService wires a runner. publisher and journal may be nil.
func NewService(client httpclient.Client, publisher EventPublisher, journal storage.Journal, log logger.Logger, source string) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		client:    client,
		publisher: publisher,
		journal:   journal,
		log:       log,
		source:    source,
	}
}

// Run executes every spec in order. Failures of individual requests are logged
// and returned joined; they never stop the remaining requests.
func (s *Service) Run(ctx context.Context, specs []domain.RequestSpec) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("runner service is not initialized")
	}
	if len(specs) == 0 {
		return fmt.Errorf("no requests configured")
	}

	var errs []error
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := s.runOne(ctx, spec); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("planned request failed", "request_error", map[string]any{
				"request_id": spec.ID,
				"error":      err.Error(),
			})
		}

		if spec.Delay > 0 && i < len(specs)-1 && !sleep(ctx, spec.Delay) {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return errors.Join(errs...)
}

func (s *Service) runOne(ctx context.Context, spec domain.RequestSpec) error {
	if spec.Once && s.journal != nil {
		done, err := s.journal.Done(spec.ID)
		if err != nil {
			return fmt.Errorf("check journal for %s: %w", spec.ID, err)
		}
		if done {
			s.log.DebugObj("planned request already completed", "request_id", spec.ID)
			return nil
		}
	}

	outcome := s.Execute(ctx, spec)

	var errs []error
	if !outcome.Succeeded {
		errs = append(errs, fmt.Errorf("request %s: %s", spec.ID, outcome.Error))
	} else if spec.Once && s.journal != nil {
		if err := s.journal.MarkDone(spec.ID); err != nil {
			errs = append(errs, fmt.Errorf("mark %s done: %w", spec.ID, err))
		}
	}

	if s.publisher != nil {
		if _, err := s.publisher.Publish(ctx, publishers.NewEvent(s.source, outcome)); err != nil {
			errs = append(errs, fmt.Errorf("publish outcome for %s: %w", spec.ID, err))
		}
	}

	s.log.InfoObj("planned request completed", "request_outcome", map[string]any{
		"request_id":  outcome.RequestID,
		"status_code": outcome.StatusCode,
		"succeeded":   outcome.Succeeded,
		"elapsed_ms":  outcome.ElapsedMs,
	})
	return errors.Join(errs...)
}

// Execute performs one request and summarizes the result.
func (s *Service) Execute(ctx context.Context, spec domain.RequestSpec) domain.Outcome {
	start := time.Now()
	params := buildParams(spec)

	var (
		resp *httpclient.Response
		err  error
	)
	switch spec.Method {
	case http.MethodPost:
		resp, err = s.client.Post(ctx, spec.URL, params, spec.Headers)
	default:
		resp, err = s.client.Get(ctx, spec.URL, spec.Headers, params)
	}

	out := domain.Outcome{
		RequestID: spec.ID,
		Method:    spec.Method,
		URL:       spec.URL,
		Succeeded: err == nil,
	}
	if resp != nil {
		out.StatusCode = resp.StatusCode()
		out.BodyBytes = len(resp.Body())
	}
	if err != nil {
		out.Error = err.Error()
		out.ErrorKind = "unknown"
		var herr *httpclient.Error
		if errors.As(err, &herr) {
			out.ErrorKind = herr.Kind.String()
		}
	}

	if spec.ExtractMeta && err == nil && resp != nil {
		meta, perr := parseMeta(resp.Body(), spec.URL)
		if perr != nil {
			s.log.WarnObj("response metadata extraction failed", "metadata_error", map[string]any{
				"request_id": spec.ID,
				"error":      perr.Error(),
			})
		} else {
			out.Meta = &meta
		}
	}

	out.ElapsedMs = time.Since(start).Milliseconds()
	out.CompletedAt = time.Now().UTC()
	return out
}

// buildParams merges text params with file references. Nil when the request has neither.
func buildParams(spec domain.RequestSpec) httpclient.Params {
	if spec.Params == nil && len(spec.Files) == 0 {
		return nil
	}
	params := make(httpclient.Params, len(spec.Params)+len(spec.Files))
	for k, v := range spec.Params {
		params[k] = v
	}
	for k, path := range spec.Files {
		params[k] = httpclient.FileRef(path)
	}
	return params
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
