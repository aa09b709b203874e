package loop

import (
	"context"
	"fmt"

	"github.com/hupe1980/researchflow/logging"
	"github.com/hupe1980/researchflow/metrics"
)

// DefaultMaxAttempts is the retry budget used by workflows when none is configured.
const DefaultMaxAttempts = 1

// Iteration describes the current position inside a counted loop.
type Iteration struct {
	Index int // 1-based
	Total int // frozen at loop entry
}

// First reports whether this is the first iteration.
func (it Iteration) First() bool { return it.Index == 1 }

// Last reports whether this is the final iteration.
func (it Iteration) Last() bool { return it.Index == it.Total }

// String renders the iteration as "index/total".
func (it Iteration) String() string { return fmt.Sprintf("%d/%d", it.Index, it.Total) }

// Body is the work executed for one iteration.
type Body func(ctx context.Context, it Iteration) error

// Options configures a loop.
type Options struct {
	// Name identifies the loop in logs, errors and metrics.
	Name string
	// Fallback runs exactly once when the total is zero.
	Fallback func(ctx context.Context) error
	Logger   logging.Logger
	Recorder metrics.Recorder
}

// Option mutates Options.
type Option func(*Options)

// WithName sets the loop name.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithFallback sets the branch taken when the loop has nothing to iterate.
func WithFallback(fn func(ctx context.Context) error) Option {
	return func(o *Options) { o.Fallback = fn }
}

// WithLogger sets the logger used for iteration traces.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithRecorder sets the metrics recorder counting iterations.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Options) { o.Recorder = r }
}

func newOptions(opts []Option) Options {
	o := Options{
		Name:     "loop",
		Logger:   logging.NoOpLogger{},
		Recorder: metrics.Nop(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Counted runs body for indices 1..total. The total is read once; a body that
// grows the underlying data does not extend the loop. A zero total runs the
// fallback branch exactly once (or nothing, with a warning, when no fallback
// is set). Negative totals are treated as zero.
func Counted(ctx context.Context, total int, body Body, opts ...Option) error {
	o := newOptions(opts)

	if total <= 0 {
		if o.Fallback == nil {
			o.Logger.Warn("loop.empty", "loop", o.Name, "fallback", false)
			return nil
		}

		o.Logger.Debug("loop.fallback", "loop", o.Name)

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := o.Fallback(ctx); err != nil {
			return fmt.Errorf("loop %s fallback: %w", o.Name, err)
		}

		return nil
	}

	for i := 1; i <= total; i++ {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		it := Iteration{Index: i, Total: total}
		o.Logger.Debug("loop.iteration", "loop", o.Name, "index", i, "total", total)
		o.Recorder.IncLoopIteration(o.Name)

		if err := body(ctx, it); err != nil {
			return fmt.Errorf("loop %s iteration %s: %w", o.Name, it, err)
		}
	}

	return nil
}

// Each runs body once per item of a snapshot of items taken at entry,
// passing items[index-1] alongside the 1-based iteration.
func Each[T any](ctx context.Context, items []T, body func(ctx context.Context, it Iteration, item T) error, opts ...Option) error {
	snapshot := items[:len(items):len(items)]

	return Counted(ctx, len(snapshot), func(ctx context.Context, it Iteration) error {
		return body(ctx, it, snapshot[it.Index-1])
	}, opts...)
}

// Bound returns min(limit, n). A non-positive limit means no limit.
func Bound(limit, n int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}

// BoundedRetry runs body while satisfied() is false and fewer than
// maxAttempts attempts were made. The predicate is re-evaluated after every
// body. It returns the number of attempts executed.
func BoundedRetry(ctx context.Context, satisfied func() bool, maxAttempts int, body func(ctx context.Context, attempt int) error, opts ...Option) (int, error) {
	o := newOptions(opts)

	attempts := 0
	for !satisfied() && attempts < maxAttempts {
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		default:
		}

		attempts++
		o.Logger.Info("loop.retry", "loop", o.Name, "attempt", attempts, "max_attempts", maxAttempts)
		o.Recorder.IncLoopIteration(o.Name)

		if err := body(ctx, attempts); err != nil {
			return attempts, fmt.Errorf("loop %s attempt %d/%d: %w", o.Name, attempts, maxAttempts, err)
		}
	}

	return attempts, nil
}
