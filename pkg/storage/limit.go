package storage

import (
	"context"

	"github.com/tally-ai/tally/pkg/query"
)

// limited wraps a DataSource with a bounded concurrency semaphore so
// parallel tool calls across all in-flight conversations cannot overwhelm
// the backend.
type limited struct {
	src DataSource
	sem chan struct{}
}

// Ensure limited implements DataSource at compile time.
var _ DataSource = (*limited)(nil)

// NewLimited caps simultaneous queries against src at max. A max of zero
// or less returns src unchanged.
func NewLimited(src DataSource, max int) DataSource {
	if max <= 0 {
		return src
	}
	return &limited{
		src: src,
		sem: make(chan struct{}, max),
	}
}

// acquire blocks until a slot is free or the context is done.
func (l *limited) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limited) release() {
	<-l.sem
}

func (l *limited) Select(ctx context.Context, req *query.Request) (*query.Result, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.release()
	return l.src.Select(ctx, req)
}

func (l *limited) FetchLatest(ctx context.Context, entity, key string) (query.Row, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.release()
	return l.src.FetchLatest(ctx, entity, key)
}

func (l *limited) Close() error {
	return l.src.Close()
}
