package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ologbonowiwi/sparsedex/internal/config"
	"github.com/ologbonowiwi/sparsedex/pkg/sparsedex"
)

func newBuildCmd() *cobra.Command {
	var onDisk bool
	var fullScanThreshold uint32

	cmd := &cobra.Command{
		Use:   "build <path>",
		Short: "Build a sparse vector index from path/vectors.jsonl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			collaborators, err := loadCollaborators(dir)
			if err != nil {
				return err
			}

			cfg := config.DefaultConfig()
			cfg.Index.OnDisk = onDisk
			cfg.Index.FullScanThreshold = fullScanThreshold

			idx, err := sparsedex.Open(cfg, collaborators, dir, nil)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()
			if err := idx.BuildIndex(nil); err != nil {
				return err
			}

			fmt.Printf("built index at %s: %d vectors indexed\n", dir, idx.IndexedVectorCount())
			return nil
		},
	}

	cmd.Flags().BoolVar(&onDisk, "on-disk", false, "materialize the memory-mapped index variant")
	cmd.Flags().Uint32Var(&fullScanThreshold, "full-scan-threshold", config.DefaultConfig().Index.FullScanThreshold, "filter cardinality below which the plain path is preferred")

	return cmd
}
