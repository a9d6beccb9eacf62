// Package cmd wires the command-line entry point: flag parsing, logging,
// tracing, metrics, and process tuning, around the single "search"
// subcommand spec §6 describes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/term"
)

// Version is set via -ldflags at build time.
//
//nolint:gochecknoglobals
var Version = "dev"

type flagSourcesFn func(envVar string) cli.ValueSourceChain

// New builds the root "folder" command: global flags for log level, the
// metrics address, and an OTel stdout toggle, with the single "search"
// subcommand underneath (which takes the index path as an argument).
func New() *cli.Command {
	var shutdownTracing func(context.Context) error

	flagSources := func(envVar string) cli.ValueSourceChain {
		return cli.NewValueSourceChain(cli.EnvVar(envVar))
	}

	return &cli.Command{
		Name:    "folder",
		Usage:   "query a prebuilt, sharded inverted-index search corpus",
		Version: Version,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {})); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to set GOMAXPROCS")
			}

			ctx = withLogger(ctx, cmd.String("log-level"))

			var err error

			ctx, shutdownTracing, err = setupTracing(ctx, cmd.Bool("otel-stdout"))
			if err != nil {
				return ctx, err
			}

			return ctx, nil
		},
		After: func(ctx context.Context, _ *cli.Command) error {
			if shutdownTracing != nil {
				return shutdownTracing(ctx)
			}

			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level (trace, debug, info, warn, error)",
				Value:   "info",
				Sources: flagSources("FOLDER_LOG_LEVEL"),
				Validator: func(lvl string) error {
					_, err := zerolog.ParseLevel(lvl)

					return err
				},
			},
			&cli.BoolFlag{
				Name:    "otel-stdout",
				Usage:   "emit trace spans to stdout instead of discarding them",
				Sources: flagSources("FOLDER_OTEL_STDOUT"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "address to serve Prometheus metrics on (empty disables the endpoint)",
				Sources: flagSources("FOLDER_METRICS_ADDR"),
			},
		},
		Commands: []*cli.Command{
			searchCommand(flagSources),
		},
	}
}

func withLogger(ctx context.Context, logLvl string) context.Context {
	lvl, err := zerolog.ParseLevel(logLvl)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var output io.Writer = os.Stdout

	if term.IsTerminal(int(os.Stdout.Fd())) {
		output = zerolog.ConsoleWriter{Out: colorable.NewColorableStdout(), TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).Level(lvl).With().Timestamp().Logger()

	return logger.WithContext(ctx)
}

// setupTracing installs the global tracer provider: a stdout exporter
// when enabled, otherwise an exporter that discards every span. Unlike
// the teacher's setupOTelSDK, there is no OTLP gRPC exporter, metrics
// bridge, or logger provider here — see DESIGN.md for why the full
// pipeline was not carried over for this client.
func setupTracing(ctx context.Context, stdout bool) (context.Context, func(context.Context) error, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	if stdout {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	}

	if err != nil {
		return ctx, nil, fmt.Errorf("cmd: creating trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	return ctx, provider.Shutdown, nil
}
