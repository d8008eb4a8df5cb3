// Command stanmath evaluates, checks and optimizes built-in models with the
// reverse-mode differentiation engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/born-ml/stanmath/internal/config"
)

const version = "v0.1.0-dev"

var tracer = otel.Tracer("stanmath/cmd")

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	logLevel   string
	trace      bool

	cfg      config.Config
	log      zerolog.Logger
	shutdown func(context.Context) error
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes one command line and flushes the tracer.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{log: zerolog.Nop()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.shutdown != nil {
		if serr := a.shutdown(context.Background()); serr != nil && err == nil {
			err = fmt.Errorf("flush traces: %w", serr)
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stanmath",
		Short: "Reverse-mode automatic differentiation for statistical models",
		Long: `stanmath evaluates built-in models together with their gradients,
checks them against finite differences and forward mode, and runs
gradient-based optimization and parallel benchmarks.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	pf.BoolVar(&a.trace, "trace", false, "Export OpenTelemetry spans to stdout")

	root.AddCommand(
		a.versionCmd(),
		a.modelsCmd(),
		a.gradCmd(),
		a.hessianCmd(),
		a.optimizeCmd(),
		a.benchCmd(),
		a.dumpCmd(),
		a.inspectCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if a.trace {
		cfg.Tracing.Enabled = true
	}
	a.cfg = cfg

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var w io.Writer = cmd.ErrOrStderr()
	if cfg.Log.Console {
		w = zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}
	}
	a.log = zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()

	if cfg.Tracing.Enabled {
		shutdown, err := initTracer(cmd.OutOrStdout(), cfg.Tracing.ServiceName)
		if err != nil {
			return fmt.Errorf("initialize tracer: %w", err)
		}
		a.shutdown = shutdown
	}
	a.log.Debug().Str("config", a.configPath).Str("level", cfg.Level().String()).Msg("configuration loaded")
	return nil
}

// traced runs fn inside a span named after the command.
func (a *app) traced(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "stanmath."+cmd.Name(),
			trace.WithAttributes(attribute.StringSlice("args", args)),
		)
		defer span.End()

		if err := fn(ctx, cmd, args); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// modelArgs resolves MODEL [x...] positional arguments.
func modelArgs(args []string) (model, []float64, error) {
	m, err := lookupModel(args[0])
	if err != nil {
		return model{}, nil, err
	}
	x, err := parseFloats(args[1:])
	if err != nil {
		return model{}, nil, err
	}
	x, err = m.point(x)
	if err != nil {
		return model{}, nil, err
	}
	return m, x, nil
}
