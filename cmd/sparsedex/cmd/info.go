package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ologbonowiwi/sparsedex/internal/config"
	"github.com/ologbonowiwi/sparsedex/internal/profiling"
	"github.com/ologbonowiwi/sparsedex/internal/telemetry"
	"github.com/ologbonowiwi/sparsedex/pkg/sparsedex"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Show the configuration and telemetry of a built index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			cfg, existed, err := config.Load(dir)
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("no index at %s; run 'sparsedex build' first", dir)
			}

			collaborators, err := loadCollaborators(dir)
			if err != nil {
				return err
			}

			idx, err := sparsedex.Open(cfg, collaborators, dir, nil)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			printInfo(idx, cfg)
			return nil
		},
	}
	return cmd
}

func isColorTerminal() bool {
	f := os.Stdout
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printInfo(idx *sparsedex.Index, cfg config.Config) {
	header := lipgloss.NewStyle()
	label := lipgloss.NewStyle()
	if isColorTerminal() {
		header = header.Bold(true).Foreground(lipgloss.Color("154"))
		label = label.Foreground(lipgloss.Color("245"))
	}

	fmt.Println(header.Render("index"))
	fmt.Printf("%s %d\n", label.Render("vectors:"), idx.IndexedVectorCount())
	fmt.Printf("%s %d\n", label.Render("full_scan_threshold:"), cfg.Index.FullScanThreshold)
	fmt.Printf("%s %v\n", label.Render("on_disk:"), cfg.Index.OnDisk)
	fmt.Printf("%s %d\n", label.Render("max_k:"), cfg.Search.MaxK)

	view := idx.Telemetry()
	fmt.Println()
	fmt.Println(header.Render("telemetry"))
	printBucket(label, "filtered_sparse", view.FilteredSparse)
	printBucket(label, "unfiltered_sparse", view.UnfilteredSparse)
	printBucket(label, "filtered_plain", view.FilteredPlain)
	printBucket(label, "small_cardinality", view.SmallCardinality)

	if len(view.TopDimensions) > 0 {
		fmt.Println()
		fmt.Println(header.Render("top dimensions"))
		for _, d := range view.TopDimensions {
			fmt.Printf("%s %d  %s %d\n", label.Render("dim:"), d.Dimension, label.Render("count:"), d.Count)
		}
	}

	mem := profiling.MemStats()
	fmt.Println()
	fmt.Println(header.Render("process memory"))
	fmt.Printf("%s %s\n", label.Render("heap_alloc:"), profiling.FormatBytes(mem.HeapAlloc))
	fmt.Printf("%s %s\n", label.Render("total_alloc:"), profiling.FormatBytes(mem.TotalAlloc))
	fmt.Printf("%s %s\n", label.Render("sys:"), profiling.FormatBytes(mem.Sys))
}

func printBucket(label lipgloss.Style, name string, stats telemetry.Stats) {
	fmt.Printf("%s count=%d mean=%s p50=%s p95=%s max=%s\n",
		label.Render(name+":"), stats.Count, stats.Mean, stats.P50, stats.P95, stats.Max)
}
