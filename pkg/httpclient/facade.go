package httpclient

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

// Response is the outcome of a completed exchange.
type Response struct {
	status int
	header http.Header
	body   []byte
}

func (r *Response) StatusCode() int     { return r.status }
func (r *Response) Body() []byte        { return r.body }
func (r *Response) Header() http.Header { return r.header }

// Text returns the body decoded as UTF-8; invalid sequences become U+FFFD.
func (r *Response) Text() string {
	if utf8.Valid(r.body) {
		return string(r.body)
	}
	return strings.ToValidUTF8(string(r.body), "�")
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool { return r.status >= 200 && r.status < 300 }

// BodyOrNil collapses a call result to its text, or nil on any failure.
func BodyOrNil(resp *Response, err error) *string {
	if err != nil || resp == nil {
		return nil
	}
	s := resp.Text()
	return &s
}

// Option customizes a Facade.
type Option func(*Facade)

// WithLogger sets the logger used for status and failure reporting.
func WithLogger(log Logger) Option {
	return func(f *Facade) { f.log = ensureLogger(log) }
}

// WithHeaderMatch selects how default headers detect caller-supplied keys.
func WithHeaderMatch(m HeaderMatch) Option {
	return func(f *Facade) { f.match = m }
}

// Facade issues GET and POST requests over a shared Pool.
type Facade struct {
	pool  *Pool
	log   Logger
	match HeaderMatch
}

var _ Client = (*Facade)(nil)

// New builds a facade over pool. A nil pool gets a default one.
func New(pool *Pool, opts ...Option) *Facade {
	if pool == nil {
		pool = NewPool(DefaultPoolConfig())
	}
	f := &Facade{pool: pool, log: NopLogger{}, match: MatchFold}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get sends a GET with params merged into the query string.
func (f *Facade) Get(ctx context.Context, url string, headers map[string]string, params Params) (*Response, error) {
	target, err := withQuery(url, params)
	if err != nil {
		return nil, f.fail(newEncodingError(http.MethodGet, url, err))
	}

	req := f.pool.request(ctx)
	applyHeaders(req.Header, MergeHeaders(headers, f.match))
	return f.execute(req, http.MethodGet, target)
}

// Post sends a POST whose body encoding follows the merged Content-Type.
func (f *Facade) Post(ctx context.Context, url string, params Params, headers map[string]string) (*Response, error) {
	target, err := parseTarget(url)
	if err != nil {
		return nil, f.fail(newEncodingError(http.MethodPost, url, err))
	}

	merged := MergeHeaders(headers, f.match)
	kind := ResolveContentType(merged)

	req := f.pool.request(ctx)
	applyHeaders(req.Header, merged)
	cleanup, err := encodeBody(req, kind, params, f.log)
	defer cleanup()
	if err != nil {
		return nil, f.fail(newEncodingError(http.MethodPost, url, err))
	}

	f.log.DebugObj("http request body prepared", "http_request", map[string]any{
		"method":       http.MethodPost,
		"url":          target.String(),
		"content_type": kind.String(),
		"params_count": len(params),
	})
	return f.execute(req, http.MethodPost, target.String())
}

func (f *Facade) GetURL(ctx context.Context, url string) (*Response, error) {
	return f.Get(ctx, url, nil, nil)
}

func (f *Facade) GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return f.Get(ctx, url, headers, nil)
}

func (f *Facade) GetWithParams(ctx context.Context, url string, params Params) (*Response, error) {
	return f.Get(ctx, url, nil, params)
}

func (f *Facade) PostURL(ctx context.Context, url string) (*Response, error) {
	return f.Post(ctx, url, nil, nil)
}

func (f *Facade) PostWithHeaders(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return f.Post(ctx, url, nil, headers)
}

func (f *Facade) PostWithParams(ctx context.Context, url string, params Params) (*Response, error) {
	return f.Post(ctx, url, params, nil)
}

func (f *Facade) execute(req *resty.Request, method, target string) (*Response, error) {
	resp, err := req.Execute(method, target)
	if err != nil {
		return nil, f.fail(newTransportError(method, target, err))
	}

	out := &Response{
		status: resp.StatusCode(),
		header: resp.Header(),
		body:   resp.Body(),
	}
	f.log.InfoObj("http request completed", "http_response", map[string]any{
		"method":      method,
		"url":         target,
		"status_code": out.status,
		"elapsed_ms":  resp.Time().Milliseconds(),
	})

	if !out.IsSuccess() {
		return out, f.fail(newStatusError(method, target, out.status))
	}
	return out, nil
}

func (f *Facade) fail(e *Error) *Error {
	fields := map[string]any{
		"method": e.Method,
		"url":    e.URL,
		"kind":   e.Kind.String(),
	}
	if e.Kind == KindStatus {
		fields["status_code"] = e.StatusCode
	} else if e.Err != nil {
		fields["error"] = e.Err.Error()
	}
	f.log.WarnObj("http request failed", "http_error", fields)
	return e
}
