package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxTotal    = 500
	DefaultMaxPerRoute = 100
	DefaultTimeout     = 60 * time.Second

	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// PoolConfig sizes the shared connection pool.
type PoolConfig struct {
	MaxTotal    int
	MaxPerRoute int
	// Timeout bounds both connection setup and the whole exchange of a single call.
	Timeout time.Duration
}

// DefaultPoolConfig returns 500 total / 100 per route connections with a 60s timeout.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxTotal:    DefaultMaxTotal,
		MaxPerRoute: DefaultMaxPerRoute,
		Timeout:     DefaultTimeout,
	}
}

func (c PoolConfig) normalize() PoolConfig {
	if c.MaxTotal <= 0 {
		c.MaxTotal = DefaultMaxTotal
	}
	if c.MaxPerRoute <= 0 {
		c.MaxPerRoute = DefaultMaxPerRoute
	}
	if c.MaxPerRoute > c.MaxTotal {
		c.MaxPerRoute = c.MaxTotal
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Pool owns the long-lived resty client and the connections behind it.
// Build one per process and share it; it is safe for concurrent use.
type Pool struct {
	cfg       PoolConfig
	client    *resty.Client
	transport *http.Transport
	log       Logger
}

// PoolOption customizes a Pool at construction.
type PoolOption func(*Pool)

// WithPoolLogger routes resty's internal warnings through log.
func WithPoolLogger(log Logger) PoolOption {
	return func(p *Pool) { p.log = ensureLogger(log) }
}

// NewPool creates a pool bounded to cfg.MaxTotal connections overall and
// cfg.MaxPerRoute connections per host.
func NewPool(cfg PoolConfig, opts ...PoolOption) *Pool {
	cfg = cfg.normalize()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: defaultKeepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.MaxTotal,
		MaxIdleConnsPerHost:   cfg.MaxPerRoute,
		MaxConnsPerHost:       cfg.MaxPerRoute,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	hc := &http.Client{
		Transport: &limitedTransport{
			base: transport,
			sem:  semaphore.NewWeighted(int64(cfg.MaxTotal)),
		},
	}

	p := &Pool{cfg: cfg, transport: transport, log: NopLogger{}}
	for _, opt := range opts {
		opt(p)
	}

	p.client = resty.NewWithClient(hc).
		SetTimeout(cfg.Timeout).
		SetLogger(restyLogger{log: p.log})
	return p
}

// Config returns the effective pool settings.
func (p *Pool) Config() PoolConfig { return p.cfg }

// Close drops idle connections. In-flight requests are not interrupted.
func (p *Pool) Close() {
	if p == nil || p.transport == nil {
		return
	}
	p.transport.CloseIdleConnections()
}

func (p *Pool) request(ctx context.Context) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.client.R().SetContext(ctx)
}

// limitedTransport caps the number of in-flight exchanges across all routes.
// A slot is held until the response body is closed.
type limitedTransport struct {
	base http.RoundTripper
	sem  *semaphore.Weighted
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, fmt.Errorf("acquire pooled connection: %w", err)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: func() { t.sem.Release(1) }}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// restyLogger adapts Logger to resty.Logger.
type restyLogger struct {
	log Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.ErrorObj("resty error", "resty_message", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.WarnObj("resty warning", "resty_message", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.DebugObj("resty debug", "resty_message", fmt.Sprintf(format, v...))
}
