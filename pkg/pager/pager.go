// Package pager implements the generic cursor-following fetch loop used to
// pull complete remote collections into memory snapshots. A walk either
// returns the full collection or fails: truncated snapshots are never
// returned, because a planner fed a partial destination snapshot would
// archive live records it never saw.
package pager

import (
	"context"
	"time"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/errors"
	"github.com/farmaciaslf/medisync/pkg/logging"
)

// PageFunc fetches one page of records starting at cursor. It returns the
// records, the cursor of the next page and whether more pages remain. An
// empty cursor requests the first page.
type PageFunc[T any] func(ctx context.Context, cursor string) (items []T, next string, hasMore bool, err error)

// Option configures a walk.
type Option func(*options)

type options struct {
	source  string
	retries int
	sleep   func(context.Context, time.Duration) error
}

// WithSource names the collection being walked, for logs and errors.
func WithSource(name string) Option {
	return func(o *options) { o.source = name }
}

// WithRetries overrides the per-page retry budget.
func WithRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.retries = n
		}
	}
}

// WithSleep overrides the backoff sleeper, used by tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

// FetchAll walks the collection from the empty cursor until hasMore is false,
// concatenating records in arrival order. A failing page is retried in place
// with linearly increasing backoff; once the retry budget is exhausted the
// whole walk fails.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], opts ...Option) ([]T, error) {
	o := &options{
		source:  "remote",
		retries: constants.MaxRetries,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}

	var all []T
	cursor := ""
	page := 1

	for {
		items, next, hasMore, err := fetchPage(ctx, fetch, cursor, o)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)
		logging.Debug().
			Str("source", o.source).
			Int("page", page).
			Int("accumulated", len(all)).
			Msg("Page fetched")

		if !hasMore {
			return all, nil
		}
		cursor = next
		page++
	}
}

// fetchPage fetches a single page, retrying the same cursor on failure.
func fetchPage[T any](ctx context.Context, fetch PageFunc[T], cursor string, o *options) ([]T, string, bool, error) {
	var lastErr error

	for attempt := 0; attempt < o.retries; attempt++ {
		if attempt > 0 {
			backoff := constants.RetryBackoffBase + time.Duration(attempt-1)*constants.RetryBackoffStep
			logging.Warn().
				Str("source", o.source).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying page fetch")
			if err := o.sleep(ctx, backoff); err != nil {
				return nil, "", false, err
			}
		}

		items, next, hasMore, err := fetch(ctx, cursor)
		if err == nil {
			return items, next, hasMore, nil
		}
		if ctx.Err() != nil {
			return nil, "", false, ctx.Err()
		}
		lastErr = err
	}

	return nil, "", false, &errors.FetchError{
		Source:   o.source,
		Cursor:   cursor,
		Attempts: o.retries,
		Err:      lastErr,
	}
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
