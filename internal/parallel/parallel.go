// Package parallel runs independent differentiation tasks concurrently.
//
// A Stack is never shared between goroutines. Each worker owns a private
// Stack for its lifetime and runs tasks on it one at a time, so episodes of
// different workers never meet and arena memory is reused task after task.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/functional"
	"github.com/born-ml/stanmath/internal/metrics"
)

var tracer = otel.Tracer("stanmath.parallel")

// ErrTaskPanic wraps a panic raised by a task.
var ErrTaskPanic = errors.New("parallel: task panicked")

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.

	// Metrics, when set, is shared by every worker stack and counts failed tasks.
	Metrics *metrics.Collectors
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// workers returns the number of goroutines to use for n tasks.
func (c Config) workers(n int) int {
	w := c.NumWorkers
	if !c.Enabled || w < 1 {
		w = 1
	}
	return max(min(w, n), 1)
}

// Task is one unit of work. It receives the worker's private stack with no
// episode open and must leave it that way.
type Task func(ctx context.Context, i int, s *autodiff.Stack) error

// Run executes task(i) for i in [0, n).
//
// The first failing task cancels ctx for the others; tasks already running
// finish, tasks not yet started are skipped, and its error is returned.
// A panicking task is reported as an error wrapping ErrTaskPanic, and the
// worker replaces its stack.
func Run(ctx context.Context, cfg Config, n int, opts []autodiff.Option, task Task) error {
	if n <= 0 {
		return nil
	}
	workers := cfg.workers(n)
	if cfg.Metrics != nil {
		opts = append(opts[:len(opts):len(opts)], autodiff.WithMetrics(cfg.Metrics))
	}

	ctx, span := tracer.Start(ctx, "parallel.Run",
		trace.WithAttributes(attribute.Int("parallel.tasks", n), attribute.Int("parallel.workers", workers)),
	)
	defer span.End()

	stacks := make(chan *autodiff.Stack, workers)
	for range workers {
		stacks <- autodiff.NewStack(opts...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s := <-stacks
			err := runTask(gctx, i, s, task)
			if s.Depth() != 0 {
				s = autodiff.NewStack(opts...)
			}
			stacks <- s
			if err != nil && !errors.Is(err, context.Canceled) {
				cfg.Metrics.TaskFailed()
			}
			return err
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func runTask(ctx context.Context, i int, s *autodiff.Stack, task Task) (err error) {
	ctx, span := tracer.Start(ctx, "parallel.task", trace.WithAttributes(attribute.Int("parallel.index", i)))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: task %d: %v", ErrTaskPanic, i, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return task(ctx, i, s)
}

// Point is the value and gradient of a function at one input.
type Point struct {
	X     []float64
	Value float64
	Grad  []float64
}

// Gradients evaluates f and its gradient at every input, spreading the
// inputs across workers. Results are in input order.
func Gradients(ctx context.Context, cfg Config, f functional.Func, xs [][]float64, opts ...autodiff.Option) ([]Point, error) {
	out := make([]Point, len(xs))
	err := Run(ctx, cfg, len(xs), opts, func(_ context.Context, i int, s *autodiff.Stack) error {
		fx, grad, err := functional.Gradient(s, f, xs[i])
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = Point{X: xs[i], Value: fx, Grad: grad}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
