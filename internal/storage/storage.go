// Package storage keeps a local journal of requests that already succeeded so
// that run-once plan entries are not repeated within their retention window.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Journal records request ids that completed successfully.
type Journal interface {
	Close() error
	Done(id string) (bool, error)
	MarkDone(id string) error
}

// Options controls retention for concrete journal implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// Open creates the configured journal backend.
func Open(typ, path string, opts Options) (Journal, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopJournal{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt journal requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopJournal struct{}

func (noopJournal) Close() error              { return nil }
func (noopJournal) Done(string) (bool, error) { return false, nil }
func (noopJournal) MarkDone(string) error     { return nil }
