package parallel

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/metrics"
)

func TestRun(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	err := Run(context.Background(), cfg, n, nil, func(_ context.Context, _ int, _ *autodiff.Stack) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestRun_Sequential(t *testing.T) {
	cfg := Config{Enabled: false, NumWorkers: 8}

	var order []int
	err := Run(context.Background(), cfg, 5, nil, func(_ context.Context, i int, _ *autodiff.Stack) error {
		order = append(order, i)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("sequential order: got %v", order)
		}
	}
}

func TestRun_Empty(t *testing.T) {
	called := false
	err := Run(context.Background(), DefaultConfig(), 0, nil, func(context.Context, int, *autodiff.Stack) error {
		called = true
		return nil
	})
	if err != nil || called {
		t.Errorf("empty run: err=%v called=%v", err, called)
	}
}

func TestRun_StacksAreNotShared(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4}

	var (
		mu     sync.Mutex
		inUse  = map[*autodiff.Stack]bool{}
		stacks = map[*autodiff.Stack]bool{}
	)
	err := Run(context.Background(), cfg, 200, nil, func(_ context.Context, i int, s *autodiff.Stack) error {
		mu.Lock()
		if inUse[s] {
			mu.Unlock()
			return errors.New("stack used by two tasks at once")
		}
		inUse[s] = true
		stacks[s] = true
		mu.Unlock()

		if s.Depth() != 0 {
			return errors.New("stack handed over with an open episode")
		}
		ep := s.Begin()
		x := ep.Var(float64(i))
		g := ep.Grad(x.Square(), x)
		ep.End()
		if g[0] != 2*float64(i) {
			return errors.New("wrong gradient")
		}

		mu.Lock()
		inUse[s] = false
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stacks) > 4 {
		t.Errorf("expected at most 4 stacks, got %d", len(stacks))
	}
}

func TestRun_FirstErrorCancelsRemaining(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 2}
	boom := errors.New("boom")

	var started int64
	err := Run(context.Background(), cfg, 10000, nil, func(_ context.Context, i int, _ *autodiff.Stack) error {
		atomic.AddInt64(&started, 1)
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := atomic.LoadInt64(&started); n == 10000 {
		t.Errorf("every task ran despite the failure")
	}
}

func TestRun_PanicBecomesError(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())
	cfg := Config{Enabled: true, NumWorkers: 1, Metrics: c}

	err := Run(context.Background(), cfg, 1, nil, func(_ context.Context, _ int, s *autodiff.Stack) error {
		ep := s.Begin()
		x := ep.Var(1)
		ep.End()
		_ = x.Exp() // stale variable
		return nil
	})
	if !errors.Is(err, ErrTaskPanic) {
		t.Fatalf("expected ErrTaskPanic, got %v", err)
	}
	if got := testutil.ToFloat64(c.TasksFailed); got != 1 {
		t.Errorf("TasksFailed: got %v, want 1", got)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, DefaultConfig(), 10, nil, func(context.Context, int, *autodiff.Stack) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	err := Run(context.Background(), Config{Enabled: true, NumWorkers: 2}, 3, nil, func(context.Context, int, *autodiff.Stack) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	names := map[string]int{}
	for _, s := range rec.Ended() {
		names[s.Name()]++
	}
	if names["parallel.Run"] != 1 || names["parallel.task"] != 3 {
		t.Errorf("unexpected spans: %v", names)
	}
}

func TestGradients(t *testing.T) {
	f := func(x []autodiff.Var) (autodiff.Var, error) {
		return autodiff.LogSumExp(x).Mul(x[0]), nil
	}
	xs := make([][]float64, 50)
	for i := range xs {
		xs[i] = []float64{float64(i) / 10, -float64(i) / 7}
	}

	got, err := Gradients(context.Background(), Config{Enabled: true, NumWorkers: 3}, f, xs)
	if err != nil {
		t.Fatalf("Gradients: %v", err)
	}

	s := autodiff.NewStack()
	for i, x := range xs {
		ep := s.Begin()
		vs := ep.Vars(x)
		y, _ := f(vs)
		want := ep.Grad(y, vs...)
		ep.End()

		if got[i].Value != y.Value() {
			t.Errorf("value %d: got %g, want %g", i, got[i].Value, y.Value())
		}
		for j := range want {
			if math.Float64bits(got[i].Grad[j]) != math.Float64bits(want[j]) {
				t.Errorf("grad %d[%d]: got %g, want %g", i, j, got[i].Grad[j], want[j])
			}
		}
	}
}

func TestGradients_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := Gradients(context.Background(), DefaultConfig(), func([]autodiff.Var) (autodiff.Var, error) {
		return autodiff.Var{}, boom
	}, [][]float64{{1}})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
