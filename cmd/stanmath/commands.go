package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/functional"
	"github.com/born-ml/stanmath/internal/metrics"
	"github.com/born-ml/stanmath/internal/optim"
	"github.com/born-ml/stanmath/internal/parallel"
	"github.com/born-ml/stanmath/internal/serialization"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stanmath %s\n", version)
		},
	}
}

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the built-in models",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range modelNames() {
				m := models[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-11s %s (%s, start %v)\n", name, m.Help, m.dims(), m.Start)
			}
		},
	}
}

// stack builds a stack configured from the loaded settings.
func (a *app) stack(collectors *metrics.Collectors) *autodiff.Stack {
	return autodiff.NewStack(a.cfg.StackOptions(a.log, collectors)...)
}

func (a *app) gradCmd() *cobra.Command {
	var check string
	var tol float64

	cmd := &cobra.Command{
		Use:   "grad MODEL [x...]",
		Short: "Evaluate a model and its gradient",
		Long: `Evaluate a model and its reverse-mode gradient at x (default: the model's
starting point). With --check, compare the gradient against central finite
differences (fd) or forward mode (forward).`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.traced(func(_ context.Context, cmd *cobra.Command, args []string) error {
			m, x, err := modelArgs(args)
			if err != nil {
				return err
			}
			s := a.stack(nil)

			fx, grad, err := functional.Gradient(s, m.rev, x)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "value: %g\n", fx)
			fmt.Fprintf(out, "gradient: %v\n", grad)
			a.log.Debug().Str("model", m.Name).Floats64("x", x).Int64("arena_grows", s.Stats().Arena().Grows).Msg("gradient evaluated")

			switch check {
			case "":
				return nil
			case "fd":
				err = functional.Check(s, m.rev, x, functional.CheckConfig{Tol: tol})
			case "forward":
				err = checkForward(m, x, grad, tol)
			default:
				return fmt.Errorf("unknown check %q (want fd or forward)", check)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "check %s: ok\n", check)
			return nil
		}),
	}
	cmd.Flags().StringVar(&check, "check", "", "Verify the gradient against fd or forward")
	cmd.Flags().Float64Var(&tol, "tol", 1e-6, "Relative tolerance of --check")
	return cmd
}

// checkForward compares a reverse-mode gradient with forward mode.
func checkForward(m model, x, grad []float64, tol float64) error {
	_, want, err := m.forwardGradient(x)
	if err != nil {
		return err
	}
	var bad []functional.Mismatch
	for i := range want {
		if math.Abs(grad[i]-want[i]) > tol*math.Max(1, math.Abs(want[i])) {
			bad = append(bad, functional.Mismatch{Index: i, Reverse: grad[i], Finite: want[i]})
		}
	}
	if len(bad) > 0 {
		return &functional.CheckError{Tol: tol, Mismatches: bad}
	}
	return nil
}

func (a *app) hessianCmd() *cobra.Command {
	var (
		step      float64
		precision int
	)

	cmd := &cobra.Command{
		Use:   "hessian MODEL [x...]",
		Short: "Evaluate a model's Hessian",
		Long:  `Differentiate the reverse-mode gradient with central finite differences.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: a.traced(func(_ context.Context, cmd *cobra.Command, args []string) error {
			m, x, err := modelArgs(args)
			if err != nil {
				return err
			}
			h, err := functional.Hessian(a.stack(nil), m.rev, x, step)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r, _ := h.Dims()
			for i := range r {
				row := mat.Row(nil, i, h)
				cells := make([]string, len(row))
				for j, v := range row {
					cells[j] = strconv.FormatFloat(v, 'g', precision, 64)
				}
				fmt.Fprintf(out, "[%s]\n", strings.Join(cells, " "))
			}
			return nil
		}),
	}
	cmd.Flags().Float64Var(&step, "step", 1e-5, "Finite-difference step")
	cmd.Flags().IntVar(&precision, "precision", 6, "Significant digits printed")
	return cmd
}

func (a *app) optimizeCmd() *cobra.Command {
	var (
		method   string
		lr       float64
		maxIters int
		tol      float64
	)

	cmd := &cobra.Command{
		Use:   "optimize MODEL [x0...]",
		Short: "Find a model's optimum by gradient steps",
		Long: `Log densities are maximized; the quadratic and rosenbrock models are
minimized. Every step runs one differentiation episode on a reused stack.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.traced(func(_ context.Context, cmd *cobra.Command, args []string) error {
			m, x0, err := modelArgs(args)
			if err != nil {
				return err
			}
			var opt optim.Optimizer
			switch method {
			case "adam":
				opt = optim.NewAdam(optim.AdamConfig{LR: lr})
			case "sgd":
				opt = optim.NewSGD(optim.SGDConfig{LR: lr})
			default:
				return fmt.Errorf("unknown optimizer %q (want adam or sgd)", method)
			}

			start := time.Now()
			res, err := optim.Maximize(a.stack(nil), m.objective(), x0, opt, optim.MaximizeConfig{MaxIters: maxIters, Tol: tol})
			if err != nil {
				return err
			}
			value := res.Value
			if m.Minimize {
				value = -value
			}
			a.log.Info().Str("model", m.Name).Int("iters", res.Iters).Bool("converged", res.Converged).
				Dur("elapsed", time.Since(start)).Msg("optimization finished")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "x: %v\n", res.X)
			if len(m.Params) > 0 {
				blocks, err := m.unpack(res.X)
				if err != nil {
					return err
				}
				for _, p := range m.Params {
					fmt.Fprintf(out, "  %s: %v\n", p.Name, blocks[p.Name])
				}
			}
			fmt.Fprintf(out, "value: %g\n", value)
			fmt.Fprintf(out, "iterations: %d\n", res.Iters)
			fmt.Fprintf(out, "converged: %v\n", res.Converged)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&method, "optimizer", "adam", "Optimizer (adam or sgd)")
	f.Float64Var(&lr, "lr", 0.01, "Learning rate")
	f.IntVar(&maxIters, "max-iters", 10000, "Maximum gradient evaluations")
	f.Float64Var(&tol, "tol", 1e-8, "Gradient norm at which to stop")
	return cmd
}

func (a *app) benchCmd() *cobra.Command {
	var (
		episodes    int
		workers     int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "bench MODEL [x...]",
		Short: "Run many independent gradient episodes in parallel",
		Long: `Evaluate the gradient at --episodes points near x, one private stack per
worker. With --metrics-addr, stack metrics are served for Prometheus while the
benchmark runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.traced(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			m, x, err := modelArgs(args)
			if err != nil {
				return err
			}
			if episodes < 1 {
				return fmt.Errorf("--episodes must be >= 1, got %d", episodes)
			}

			reg := prometheus.NewRegistry()
			collectors := metrics.New(reg)
			if metricsAddr == "" && a.cfg.Metrics.Enabled {
				metricsAddr = a.cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				stop, err := serveMetrics(metricsAddr, reg, a.log)
				if err != nil {
					return fmt.Errorf("serve metrics: %w", err)
				}
				defer stop()
			}

			pcfg := a.cfg.ParallelConfig(collectors)
			if cmd.Flags().Changed("workers") {
				pcfg.Enabled = workers > 1
				pcfg.NumWorkers = workers
			}

			xs := make([][]float64, episodes)
			for i := range xs {
				xs[i] = slices.Clone(x)
				for j := range xs[i] {
					xs[i][j] += 1e-3 * float64(i%100)
				}
			}

			start := time.Now()
			points, err := parallel.Gradients(ctx, pcfg, m.rev, xs, a.cfg.StackOptions(a.log, collectors)...)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "episodes: %d\n", len(points))
			fmt.Fprintf(out, "workers: %d\n", pcfg.NumWorkers)
			fmt.Fprintf(out, "elapsed: %s\n", elapsed)
			fmt.Fprintf(out, "throughput: %.0f episodes/s\n", float64(len(points))/elapsed.Seconds())
			return nil
		}),
	}
	f := cmd.Flags()
	f.IntVar(&episodes, "episodes", 10000, "Number of gradient episodes")
	f.IntVar(&workers, "workers", 0, "Worker goroutines (default from config)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func (a *app) dumpCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dump MODEL [x...]",
		Short: "Record a model's tape after a reverse sweep and write it to a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.traced(func(_ context.Context, cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New("--output is required")
			}
			m, x, err := modelArgs(args)
			if err != nil {
				return err
			}

			s := a.stack(nil)
			ep := s.Begin()
			defer ep.End()

			y, err := m.rev(ep.Vars(x))
			if err != nil {
				return err
			}
			ep.Backward(y)
			snap := s.Tape().Snapshot(s.Depth())
			if err := serialization.WriteTapeFile(output, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d nodes to %s\n", len(snap.Nodes), output)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Snapshot file to write")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	var nodes bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Summarize a tape snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: a.traced(func(_ context.Context, cmd *cobra.Command, args []string) error {
			snap, err := serialization.ReadTapeFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created: %s\n", snap.Created.Format(time.RFC3339))
			fmt.Fprintf(out, "episodes: %d\n", snap.Episodes)
			fmt.Fprintf(out, "nodes: %d\n", len(snap.Nodes))

			kinds := snap.Kinds()
			names := make([]string, 0, len(kinds))
			for k := range kinds {
				names = append(names, k)
			}
			slices.Sort(names)
			for _, k := range names {
				fmt.Fprintf(out, "  %-16s %d\n", k, kinds[k])
			}

			if nodes {
				for _, n := range snap.Nodes {
					fmt.Fprintf(out, "%4d %-16s value=%-12g adj=%-12g operands=%v\n", n.ID, n.Kind, n.Value, n.Adjoint, n.Operands)
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&nodes, "nodes", false, "List every node")
	return cmd
}
