// Command aggregate rolls an hourly observation file up to daily or monthly
// means.
//
//	aggregate <daily|monthly> <filepath>
//
// The resulting JSON list, or the failure message, is printed to stdout. On
// success the list is also written to <basename>.json in the working
// directory. Only usage errors exit non-zero.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyaloding/nasa-space-apps/internal/exporter"
	"github.com/keyaloding/nasa-space-apps/internal/infrastructure"
	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

const usageMessage = "Usage: aggregate <daily|monthly> <filepath>"

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	logger, err := infrastructure.NewLogger(infrastructure.CLILoggingConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cmd := newAggregateCmd(stdout, logger)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stdout, usageMessage)
		} else {
			logger.Error("aggregate failed", slog.String("error", err.Error()))
		}
		return 1
	}
	return 0
}

func newAggregateCmd(stdout io.Writer, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:                "aggregate <daily|monthly> <filepath>",
		Short:              "Aggregate hourly readings into daily or monthly means",
		Args:               usageArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _ := timeseries.ParseGranularity(args[0])
			return aggregate(cmd.Context(), stdout, logger, g, args[1])
		},
	}
}

// usageArgs accepts exactly a granularity token and a path.
func usageArgs(_ *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: want 2 arguments, got %d", errUsage, len(args))
	}
	if _, err := timeseries.ParseGranularity(args[0]); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

// aggregate prints the result and, on success, writes the side file. Data
// failures are printed, not returned.
func aggregate(ctx context.Context, stdout io.Writer, logger *slog.Logger, g timeseries.Granularity, path string) error {
	agg := timeseries.New(timeseries.WithLogger(logger))
	points, err := agg.Aggregate(ctx, path, g)
	result := timeseries.NewResult(points, err)

	fmt.Fprintln(stdout, result.String())
	if !result.OK() {
		logger.Warn("aggregation failed",
			slog.String("path", path),
			slog.String("granularity", g.String()),
			slog.String("error", result.Err.Error()))
		return nil
	}

	if _, err := exporter.NewJSONWriter("").WriteSideFile(path, result.Points); err != nil {
		return fmt.Errorf("write side file: %w", err)
	}
	return nil
}
