package main

import (
	"finnhub-stock-bot/config"
	"finnhub-stock-bot/lib/translation"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"os"

	_ "time/tzdata"
)

type app struct {
	configPath string
	debug      bool
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "finnhub-stock-bot",
		Short:         "Polls Finnhub stock quotes and raises threshold alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.debug {
				cfg.Debug = true
			}
			a.cfg = cfg

			setupLogging(cfg)
			translation.Configure(cfg.LocalesDir, cfg.Lang)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the config file (default ./config.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(a), newCheckCmd(a), newHistoryCmd(a))
	return root
}
