package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ologbonowiwi/sparsedex/internal/collab"
	"github.com/ologbonowiwi/sparsedex/internal/config"
	"github.com/ologbonowiwi/sparsedex/internal/searchctx"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
	"github.com/ologbonowiwi/sparsedex/pkg/sparsedex"
)

func newSearchCmd() *cobra.Command {
	var query string
	var k int
	var filterField string
	var filterValue string
	var plain bool

	cmd := &cobra.Command{
		Use:   "search <path>",
		Short: "Search a built index",
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

			q, err := parseInlineVector(query)
			if err != nil {
				return err
			}

			var filter collab.Filter
			if filterField != "" {
				filter = collab.FieldEquals{Field: filterField, Value: filterValue}
			}

			var results [][]searchctx.Result
			if plain {
				results, err = idx.SearchPlain([]sparse.Vector{q}, filter, k, nil)
			} else {
				results, err = idx.Search(sparsedex.QueryNearest, []sparse.Vector{q}, filter, k, nil)
			}
			if err != nil {
				return err
			}

			for _, r := range results[0] {
				fmt.Printf("%d\t%.6f\n", r.RecordID, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "inline sparse vector as dim:weight,dim:weight,...")
	cmd.Flags().IntVar(&k, "k", 10, "number of results")
	cmd.Flags().StringVar(&filterField, "filter-field", "", "payload field to filter on")
	cmd.Flags().StringVar(&filterValue, "filter-value", "", "value filter-field must equal")
	cmd.Flags().BoolVar(&plain, "plain", false, "force the brute-force plain path")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}
