package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/antdash/antdash/internal/checkpoint"
	"github.com/antdash/antdash/internal/dashboard"
	"github.com/antdash/antdash/internal/httpserver"
	"github.com/antdash/antdash/internal/model"
	"github.com/antdash/antdash/internal/pipeline"
	"github.com/antdash/antdash/internal/pricing"
	"github.com/antdash/antdash/internal/rescan"
	"github.com/antdash/antdash/internal/tui"
)

func run(cfg Config) error {
	// The terminal belongs to the TUI; runtime logging goes to a file.
	closeLogger := configureRuntimeLogger()
	defer closeLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := dashboard.NewState(cfg.TimelineSteps, cfg.LinesMax)
	pipe := pipeline.New(ctx, state, pipeline.Config{
		QueueSize:      cfg.QueueSize,
		TickInterval:   cfg.TickInterval,
		RedrawInterval: cfg.RedrawInterval,
		Checkpoint:     checkpointSaver(cfg),
	})
	pipe.Start()
	defer pipe.Stop()

	watcher := newWatchManager(ctx, pipe, cfg)
	defer watcher.stopAll()

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, pipe)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	manualRescan := make(chan struct{}, 1)
	scanner := rescan.New(cfg.Globs)
	g.Go(func() error {
		err := scanner.Run(gctx, cfg.GlobScanInterval, manualRescan, watcher.handle)
		if err != nil && gctx.Err() == nil {
			return fmt.Errorf("glob rescan: %w", err)
		}
		return nil
	})

	startPricing(gctx, g, cfg, pipe)

	if cfg.CheckpointInterval > 0 {
		g.Go(func() error {
			t := time.NewTicker(cfg.CheckpointInterval)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-t.C:
					pipe.Offer(pipeline.CheckpointTick{Now: now.UTC()})
				}
			}
		})
	}

	// The TUI owns the foreground; everything else runs under the group.
	dash := tui.NewModel(pipe, version, func() {
		select {
		case manualRescan <- struct{}{}:
		default:
		}
	})
	p := tea.NewProgram(dash, tea.WithAltScreen())
	_, teaErr := p.Run()

	// Final checkpoint rides the queue so it sees fully drained state.
	if cfg.CheckpointInterval > 0 {
		pipe.Offer(pipeline.CheckpointTick{Now: time.Now().UTC()})
	}
	cancel()
	watcher.stopAll()
	pipe.Stop()
	if err := g.Wait(); err != nil {
		log.Printf("run: background services: %v", err)
	}

	if teaErr != nil {
		if strings.Contains(teaErr.Error(), "TTY") || strings.Contains(teaErr.Error(), "/dev/tty") {
			return fmt.Errorf("the dashboard requires a real terminal")
		}
		return fmt.Errorf("error running dashboard: %w", teaErr)
	}
	return nil
}

func checkpointSaver(cfg Config) func(*dashboard.NodeRecord, time.Time) {
	if cfg.CheckpointInterval <= 0 {
		return nil
	}
	return func(n *dashboard.NodeRecord, now time.Time) {
		if err := checkpoint.Save(checkpoint.Capture(n, now)); err != nil {
			log.Printf("checkpoint: %v", err)
		}
	}
}

func startPricing(ctx context.Context, g *errgroup.Group, cfg Config, pipe *pipeline.Pipeline) {
	if cfg.CurrencyTokenRate > 0 {
		pipe.Offer(pipeline.RateUpdate{ExchangeRate: model.ExchangeRate{
			Symbol:    cfg.CurrencySymbol,
			Rate:      cfg.CurrencyTokenRate,
			FetchedAt: time.Now().UTC(),
		}})
		return
	}

	var fetcher pricing.Fetcher
	switch cfg.CurrencyAPIName {
	case "coingecko":
		fetcher = &pricing.CoinGecko{
			APIKey:   cfg.CoinGeckoKey,
			CoinID:   cfg.CoinID,
			Currency: cfg.Currency,
			Symbol:   cfg.CurrencySymbol,
		}
	case "coinmarketcap":
		fetcher = &pricing.CoinMarketCap{
			APIKey:   cfg.CoinMarketCapKey,
			Ticker:   cfg.CoinTicker,
			Currency: cfg.Currency,
			Symbol:   cfg.CurrencySymbol,
		}
	default:
		return
	}

	g.Go(func() error {
		pricing.Poll(ctx, fetcher, cfg.CurrencyPollInterval, func(rate model.ExchangeRate) {
			pipe.Offer(pipeline.RateUpdate{ExchangeRate: rate})
		})
		return nil
	})
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "antdash")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "antdash.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}
