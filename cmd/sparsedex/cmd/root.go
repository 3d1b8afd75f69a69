// Package cmd provides the sparsedex CLI commands.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ologbonowiwi/sparsedex/internal/profiling"
)

var (
	profileCPU       string
	profileTrace     string
	profileHeap      string
	profileGoroutine string
	profileAllocs    string
	profileBlock     string
	profiler         = profiling.NewProfiler()
	cpuCleanup       func()
	traceCleanup     func()
)

// NewRootCmd constructs the sparsedex root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sparsedex",
		Short: "Exact top-K sparse vector search",
		Long: `sparsedex builds and queries an inverted-index sparse vector
search core: exact dot-product top-K scoring with payload filtering
and an automatic plain/sparse routing policy.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "write an execution trace to this file")
	cmd.PersistentFlags().StringVar(&profileHeap, "profile-heap", "", "write a heap profile to this file on exit")
	cmd.PersistentFlags().StringVar(&profileGoroutine, "profile-goroutine", "", "write a goroutine profile to this file on exit")
	cmd.PersistentFlags().StringVar(&profileAllocs, "profile-allocs", "", "write an allocation profile to this file on exit")
	cmd.PersistentFlags().StringVar(&profileBlock, "profile-block", "", "write a blocking profile to this file on exit")
	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfiling

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newInfoCmd())

	return cmd
}

func startProfiling(_ *cobra.Command, _ []string) error {
	if profileCPU != "" {
		var err error
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return err
		}
	}
	if profileTrace != "" {
		var err error
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			return err
		}
	}
	return nil
}

func stopProfiling(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
		slog.Debug("cpu profile written", slog.String("path", profileCPU))
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
		slog.Debug("execution trace written", slog.String("path", profileTrace))
	}
	if profileHeap != "" {
		if err := profiler.WriteHeap(profileHeap); err != nil {
			return err
		}
		slog.Debug("heap profile written", slog.String("path", profileHeap))
	}
	if profileGoroutine != "" {
		if err := profiler.WriteGoroutine(profileGoroutine); err != nil {
			return err
		}
		slog.Debug("goroutine profile written", slog.String("path", profileGoroutine))
	}
	if profileAllocs != "" {
		if err := profiler.WriteAllocs(profileAllocs); err != nil {
			return err
		}
		slog.Debug("allocation profile written", slog.String("path", profileAllocs))
	}
	if profileBlock != "" {
		if err := profiler.WriteBlock(profileBlock); err != nil {
			return err
		}
		slog.Debug("block profile written", slog.String("path", profileBlock))
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
