package main

import (
	"encoding/json"
	"finnhub-stock-bot/internal/api"
	"finnhub-stock-bot/internal/notify"
	"finnhub-stock-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Poll every configured symbol once and print the resulting states",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Symbols) == 0 {
				return errors.New("no symbols configured")
			}
			tracker, err := a.newTracker(nil, nil, notify.Log{})
			if err != nil {
				return err
			}
			if err := tracker.RunOnce(cmd.Context()); err != nil {
				log.Warnf("Some symbols failed: %v", err)
			}

			entities := make([]api.Entity, 0, len(a.cfg.Symbols))
			for _, state := range tracker.States() {
				entities = append(entities, api.Entity{
					ID:         state.Symbol.EntityID(),
					State:      state.Value(),
					Attributes: types.AttributesOf(state),
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"entities": entities})
		},
	}
}
