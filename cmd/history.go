package main

import (
	"encoding/json"
	"finnhub-stock-bot/internal/database"
	"finnhub-stock-bot/internal/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"strings"
	"time"
)

func newHistoryCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history <symbol|entity_id>",
		Short: "Print the recorded states of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return errors.New("--days must be positive")
			}
			entityID := args[0]
			if !strings.HasPrefix(entityID, types.EntityPrefix) {
				entityID = types.Symbol{Ticker: entityID}.EntityID()
			}

			store, err := database.Open(a.cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			to := time.Now()
			records, err := store.History(cmd.Context(), entityID, to.AddDate(0, 0, -days), to)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"history": records})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 30, "number of days to look back")
	return cmd
}
