package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-http-facade/internal/config"
	"github.com/samvad-hq/samvad-http-facade/internal/domain"
	"github.com/samvad-hq/samvad-http-facade/internal/logger"
	"github.com/samvad-hq/samvad-http-facade/internal/plan"
	"github.com/samvad-hq/samvad-http-facade/internal/runner"
	"github.com/samvad-hq/samvad-http-facade/internal/storage"
	"github.com/samvad-hq/samvad-http-facade/pkg/httpclient"
	"github.com/samvad-hq/samvad-http-facade/pkg/publishers"
)

// Runner is the request runner runtime. It owns the shared connection pool,
// the request plan, the completion journal and the outcome sinks.
type Runner struct {
	cfg      *config.Config
	pool     *httpclient.Pool
	plan     *plan.Plan
	fanout   *publishers.Fanout
	journal  storage.Journal
	service  *runner.Service
	interval time.Duration
	log      logger.Logger
}

// NewRunner builds a runner runtime from config files.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	match, err := httpclient.ParseHeaderMatch(cfg.HeaderMatch)
	if err != nil {
		return nil, err
	}

	requestPlan, err := plan.Load(cfg.PlanFile)
	if err != nil {
		return nil, fmt.Errorf("load request plan: %w", err)
	}
	entries := requestPlan.Entries()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	log.InfoObj("request plan loaded", "plan_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	pool := httpclient.NewPool(httpclient.PoolConfig{
		MaxTotal:    cfg.PoolMaxTotal,
		MaxPerRoute: cfg.PoolMaxPerRoute,
		Timeout:     cfg.RequestTimeout,
	}, httpclient.WithPoolLogger(log))
	facade := httpclient.New(pool, httpclient.WithLogger(log), httpclient.WithHeaderMatch(match))
	poolCfg := pool.Config()
	log.InfoObj("connection pool initialized", "pool_config", map[string]any{
		"max_total":       poolCfg.MaxTotal,
		"max_per_route":   poolCfg.MaxPerRoute,
		"timeout_seconds": int(poolCfg.Timeout.Seconds()),
		"header_match":    match.String(),
	})

	fanout, err := buildSinks(ctx, cfg.SinksFile, publishers.Deps{Log: log, HTTP: facade}, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	journal, err := storage.Open(cfg.StorageType, cfg.BBoltPath, storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		if fanout != nil {
			_ = fanout.Close()
		}
		pool.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	var sink runner.EventPublisher
	if fanout != nil {
		sink = fanout
	}

	return &Runner{
		cfg:      cfg,
		pool:     pool,
		plan:     requestPlan,
		fanout:   fanout,
		journal:  journal,
		service:  runner.NewService(facade, sink, journal, log, cfg.AppName),
		interval: cfg.RunInterval,
		log:      log,
	}, nil
}

func buildSinks(ctx context.Context, path string, deps publishers.Deps, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		log.InfoObj("no sinks file configured; outcomes are only logged", "sinks_file", path)
		return nil, nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	enabled := reg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no sinks enabled in %s", path)
	}

	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, deps)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, c := range enabled {
		summaries = append(summaries, map[string]string{"id": c.ID, "type": c.Type})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Run executes the plan once, then again on every interval tick until ctx is
// cancelled. A zero interval returns after the first pass.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.service == nil {
		return fmt.Errorf("runner is not initialized")
	}
	defer r.close()

	specs := r.plan.Specs()
	r.log.InfoObj("runner starting", "runner_state", map[string]any{
		"requests_count": len(specs),
		"sinks_count":    r.fanout.Size(),
		"run_interval":   r.interval.String(),
	})

	if r.interval <= 0 {
		return r.runOnce(ctx, specs)
	}

	if err := r.runOnce(ctx, specs); err != nil {
		r.log.ErrorObj("initial run failed", "error", err.Error())
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("runner loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx, specs); err != nil {
				r.log.ErrorObj("scheduled run failed", "error", err.Error())
			}
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, specs []domain.RequestSpec) error {
	start := time.Now()
	r.log.InfoObj("run started", "run_meta", map[string]any{
		"requests_count": len(specs),
		"started_at":     start.UTC(),
	})
	err := r.service.Run(ctx, specs)
	r.log.InfoObj("run completed", "run_meta", map[string]any{
		"requests_count": len(specs),
		"failed":         err != nil,
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
	return err
}

func (r *Runner) close() {
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if r.fanout != nil {
		if err := r.fanout.Close(); err != nil {
			r.log.ErrorObj("sinks close failed", "error", err.Error())
		}
	}
	r.pool.Close()
}
