package main

import (
	"context"
	"finnhub-stock-bot/internal/api"
	"finnhub-stock-bot/internal/database"
	"finnhub-stock-bot/internal/metrics"
	"finnhub-stock-bot/internal/notify"
	"finnhub-stock-bot/internal/price"
	"finnhub-stock-bot/internal/quote"
	"finnhub-stock-bot/internal/telegram"
	"fmt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const metricsSaveInterval = 5 * time.Minute

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll every configured symbol and serve the query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	store, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	defer store.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	if samples, err := store.LoadMetrics(); err != nil {
		log.Errorf("Failed to load metrics: %v", err)
	} else {
		m.Restore(samples)
		log.Debugf("Metrics loaded from database.")
	}

	publishers := notify.Multi{notify.Log{}, store}
	tracker, err := a.newTracker(m, store, &publishers)
	if err != nil {
		return err
	}

	var bot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(telegram.BotConfig{
			Token:          cfg.Telegram.BotToken,
			ChatID:         cfg.Telegram.ChatID,
			Debug:          cfg.Debug,
			UpdatesTimeout: 60,
		}, telegram.WithStates(tracker), telegram.WithAlerts(store), telegram.WithMetrics(m))
		if err != nil {
			return err
		}
		if cfg.Telegram.ChatID != 0 {
			publishers = append(publishers, bot)
		} else {
			log.Warn("telegram.chat_id is not set, alerts will not be sent to Telegram")
		}
	}

	server := api.NewServer(tracker, api.WithHistory(store), api.WithAlerts(store))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tracker.Run(ctx) })
	g.Go(func() error { return server.Run(ctx, fmt.Sprintf(":%d", cfg.HTTPPort)) })
	if bot != nil && cfg.Telegram.Commands {
		g.Go(func() error { return bot.Run(ctx) })
	}
	g.Go(func() error {
		saveMetricsPeriodically(ctx, store, m)
		return nil
	})

	err = g.Wait()
	log.Info("Shutting down...")
	return err
}

func (a *app) newTracker(m *metrics.Metrics, recorder price.Recorder, publisher notify.Publisher) (*price.Tracker, error) {
	cfg := a.cfg
	symbols := cfg.TrackedSymbols()
	if len(symbols) == 0 {
		log.Warn("No symbols configured, only the query API will be served")
		return price.NewTracker(), nil
	}

	client, err := quote.NewFinnhubClient(cfg.APIKey,
		quote.WithBaseURL(cfg.BaseURL),
		quote.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}))
	if err != nil {
		return nil, err
	}
	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}

	pollers := make([]*price.Poller, 0, len(symbols))
	for _, symbol := range symbols {
		opts := []price.Option{
			price.WithMetrics(m),
			price.WithInterval(cfg.PollInterval),
			price.WithFetchTimeout(cfg.FetchTimeout),
			price.WithWindow(window),
		}
		if recorder != nil {
			opts = append(opts, price.WithRecorder(recorder))
		}
		if publisher != nil {
			opts = append(opts, price.WithPublisher(publisher))
		}
		pollers = append(pollers, price.NewPoller(symbol, client, opts...))
	}
	return price.NewTracker(pollers...), nil
}

func saveMetricsPeriodically(ctx context.Context, store *database.Store, m *metrics.Metrics) {
	ticker := time.NewTicker(metricsSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := store.SaveMetrics(m.Counters()); err != nil {
				log.Errorf("Failed to save metrics: %v", err)
				return
			}
			log.Info("Metrics saved, shutting down...")
			return
		case <-ticker.C:
			if err := store.SaveMetrics(m.Counters()); err != nil {
				log.Errorf("Failed to save metrics: %v", err)
			}
		}
	}
}
