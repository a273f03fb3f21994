package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"CandleFeed/internal/api"
	"CandleFeed/internal/cache"
	"CandleFeed/internal/collector"
	"CandleFeed/internal/config"
	"CandleFeed/internal/feed"
	"CandleFeed/internal/model"
	"CandleFeed/internal/notifier"
	"CandleFeed/internal/portfolio"
	"CandleFeed/internal/recorder"
	"CandleFeed/internal/scheduler"
	"CandleFeed/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("CandleFeed starting", "symbols", cfg.Feed.Symbols)

	// Data source
	zone, _ := cfg.ZonePolicy()
	fetcher := newFetcher(cfg, zone)
	logger.Info("data source selected", "source", fetcher.Name(), "zone_policy", zone)

	// Cache
	retention, _ := cfg.Retention()
	clock := cache.SystemClock()
	clock.Zone = zone
	store := cache.New(cache.WithRetention(retention), cache.WithClock(clock))

	// Recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", "err", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Portfolio
	pm, err := portfolio.NewManager(cfg.Portfolio.StateFile, cfg.Portfolio.AccountSize, cfg.Portfolio.RiskPct, logger)
	if err != nil {
		log.Fatalf("[FATAL] init portfolio: %v", err)
	}

	// Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)

	// Feed engine
	pollInterval, _ := cfg.PollInterval()
	fetchTimeout, _ := cfg.FetchTimeout()
	engCfg := feed.DefaultConfig()
	engCfg.Symbols = cfg.Feed.Symbols
	engCfg.PollInterval = pollInterval
	engCfg.Interval = cfg.Feed.Interval
	engCfg.LookbackPeriod = cfg.Feed.LookbackPeriod
	engCfg.PollLookback = cfg.Feed.PollLookback
	engCfg.FetchTimeout = fetchTimeout
	engCfg.Concurrency = cfg.Feed.Concurrency

	eng := feed.New(engCfg, store, fetcher,
		feed.WithLogger(logger),
		feed.WithErrorHook(func(symbol, stage string, err error) {
			if rerr := rec.RecordFetchFailure(&recorder.FetchFailure{
				Symbol: symbol,
				Stage:  stage,
				Source: fetcher.Name(),
				Error:  err.Error(),
			}); rerr != nil {
				logger.Warn("record fetch failure", "symbol", symbol, "err", rerr)
			}
		}),
	)
	strat := strategy.NewBreakout(pm, tn, rec, logger)
	eng.SetHandler(feed.Handlers(strat, barRecorder(rec, logger)))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counts, err := eng.Initialize(ctx)
	fmt.Print(notifier.FormatLoadReport(counts))
	if err != nil {
		logger.Warn("initial load incomplete", "err", err)
	}

	// Scheduler
	sched := scheduler.NewScheduler(ctx, store, eng, pm, tn, logger)
	if err := sched.RegisterAll(cfg.Schedule.DigestCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	var wg sync.WaitGroup

	// Telegram command polling
	wg.Add(1)
	go func() {
		defer wg.Done()
		tn.StartPolling(ctx, sched.HandleCommand)
	}()

	// Status API
	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(store, eng, pm, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx, cfg.HTTP.Addr); err != nil {
				logger.Error("status api stopped", "err", err)
			}
		}()
	}

	// Poll loop
	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx)
	}()

	logger.Info("CandleFeed is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received, stopping...")
		eng.Stop()
		cancel()
		<-done
	case err := <-done:
		logger.Error("poll loop exited", "err", err)
		cancel()
	}

	wg.Wait()
	logger.Info("CandleFeed stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newFetcher(cfg *config.Config, zone cache.ZonePolicy) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case "rest":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		m := collector.NewMockFetcher()
		m.Price = cfg.DataSource.MockPrice
		if m.Price <= 0 {
			m.Price = 100
		}
		return m
	default:
		yf := collector.NewYahooFetcher(cfg.Proxy)
		yf.WallClockUTC = zone == cache.ZoneNaive
		return yf
	}
}

// barRecorder writes the latest bar of every update to the audit trail.
func barRecorder(rec recorder.Recorder, logger *slog.Logger) feed.Handler {
	return feed.HandlerFunc(func(history []model.Candle, symbol string) {
		if len(history) == 0 {
			return
		}
		last := history[len(history)-1]
		if err := rec.RecordBar(&recorder.BarEvent{
			Symbol:     symbol,
			BarTime:    last.Time,
			Open:       last.Open,
			High:       last.High,
			Low:        last.Low,
			Close:      last.Close,
			Volume:     last.Volume,
			HistoryLen: len(history),
		}); err != nil {
			logger.Warn("record bar", "symbol", symbol, "err", err)
		}
	})
}
