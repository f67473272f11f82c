package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

func (a *app) newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show or update the inventory summary",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the inventory summary",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := store.GetSummary(cmd.Context())
			if err != nil {
				return err
			}
			if summary == nil {
				if a.jsonOut {
					return a.printJSON(nil)
				}
				return a.message("no inventory summary recorded")
			}
			return a.printJSON(summary)
		},
	})

	var stock, distributed int
	set := &cobra.Command{
		Use:   "set",
		Short: "Record the total stock and derive the summary",
		Long: `Set stores the inventory summary for the given total stock. The distributed
total is the sum over all distribution records unless --distributed is given.
Remaining and the distribution rate are derived.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			var summary types.InventorySummary
			if cmd.Flags().Changed("distributed") {
				summary = types.NewInventorySummary(stock, distributed, now)
			} else {
				recs, err := store.GetAll(ctx, types.KindInventoryDistributions)
				if err != nil {
					return err
				}
				var snap types.Snapshot
				if err := snap.SetRecords(types.KindInventoryDistributions, recs); err != nil {
					return err
				}
				summary = types.SummarizeDistributions(stock, *snap.InventoryDistributions, now)
			}
			saved, err := store.PutSummary(ctx, summary)
			if err != nil {
				return err
			}
			return a.printJSON(saved)
		},
	}
	set.Flags().IntVar(&stock, "stock", 0, "total stock on hand")
	set.Flags().IntVar(&distributed, "distributed", 0, "distributed total (default: sum of distributions)")
	_ = set.MarkFlagRequired("stock")
	cmd.AddCommand(set)
	return cmd
}
