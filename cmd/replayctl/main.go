package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	appconfig "github.com/dutchthenomad/rugsreplay/internal/config"
	"github.com/dutchthenomad/rugsreplay/internal/ledger"
	"github.com/dutchthenomad/rugsreplay/internal/recorder"
	"github.com/dutchthenomad/rugsreplay/internal/replay"
	"github.com/dutchthenomad/rugsreplay/internal/ringbuffer"
	"github.com/dutchthenomad/rugsreplay/internal/source"
	"github.com/dutchthenomad/rugsreplay/internal/store"
	"github.com/dutchthenomad/rugsreplay/internal/telemetry"
	"github.com/dutchthenomad/rugsreplay/internal/trade"
)

const version = "v1.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	cfg, err := appconfig.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Msg("═══════════════════════════════════════════════════════")
	log.Info().Msgf("    RUGSREPLAY %s — market replay & ingestion engine", version)
	log.Info().Msg("═══════════════════════════════════════════════════════")

	telem := telemetry.New()
	eventBus := bus.New(telem)

	ledgerCfg := ledger.DefaultConfig()
	ledgerCfg.InitialBalanceSOL = cfg.InitialBalanceSOL
	ledgerCfg.RugLiquidationPrice = cfg.RugLiquidationPrice
	ledgerCfg.SidebetMultiplier = cfg.SidebetMultiplier
	ledgerCfg.SidebetCooldownTicks = cfg.SidebetCooldownTicks
	ledgerCfg.SidebetWindowTicks = cfg.SidebetWindowTicks
	led := ledger.New(ledgerCfg, eventBus, telem)

	tradeCfg := trade.Config{MinBetSOL: cfg.MinBetSOL, MaxBetSOL: cfg.MaxBetSOL}
	trader := trade.New(tradeCfg, led)

	rec := recorder.New(recorderConfig(cfg), telem)

	ring := ringbuffer.New(ringbuffer.Config{
		MaxSessions:     cfg.RingBufferMaxSessions,
		MaxTicksPerGame: cfg.RingBufferMaxTicks,
	})

	auditStore, err := store.New(cfg.StorePath)
	if err != nil {
		log.Warn().Err(err).Msg("session audit store unavailable, falling back to recording directory scan")
		ring.WarmStart(cfg.RecorderDir, nil)
	} else {
		auditStore.Subscribe(eventBus)
		ring.WarmStart(cfg.RecorderDir, auditStore)
		log.Info().Msg("session audit store initialized")
	}

	deps := replay.Deps{Ledger: led, Trader: trader, Recorder: rec, Ring: ring, Bus: eventBus}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var engine interface {
		Play(context.Context) error
		Stop() error
		State() replay.RunState
	}

	switch cfg.SourceMode {
	case "live":
		liveSrc := source.NewLiveSource(cfg.LiveURL, telem)
		liveEngine := replay.NewLiveEngine(liveSrc, deps)
		engine = liveEngine
		log.Info().Str("url", cfg.LiveURL).Msg("starting live ingestion")
	default:
		fileEngine, ferr := replay.NewFileEngine(cfg.ReplayDir, deps, cfg.PlaybackSpeed, telem)
		if ferr != nil {
			log.Fatal().Err(ferr).Msg("failed to initialize file-mode replay engine")
		}
		fileEngine.SetPacing(cfg.PlaybackMinTickInterval, cfg.PlaybackMaxTickInterval)
		fileEngine.SetAutoAdvance(cfg.PlaybackAutoAdvance)
		engine = fileEngine
		log.Info().Str("dir", cfg.ReplayDir).Msg("starting file-mode replay")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telem.Registerer(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","state":%q}`, engine.State().String())
	})
	httpSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics/health server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	playErrCh := make(chan error, 1)
	go func() { playErrCh <- engine.Play(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Warn().Msg("shutdown signal received")
	case err := <-playErrCh:
		if err != nil {
			log.Error().Err(err).Msg("engine exited with error")
		}
	}

	cancel()
	if err := engine.Stop(); err != nil {
		log.Error().Err(err).Msg("engine stop error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	eventBus.Stop(shutdownCtx)

	printSummary(led)
	log.Info().Msg("goodbye")
}

func recorderConfig(cfg *appconfig.Config) recorder.Config {
	rc := recorder.DefaultConfig(cfg.RecorderDir)
	rc.FlushThresholdTicks = cfg.RecorderFlushThreshold
	rc.FlushInterval = cfg.RecorderFlushInterval
	rc.MaxBufferSize = cfg.RecorderMaxBufferSize
	rc.MinFreeDiskBytes = cfg.RecorderMinFreeDiskBytes
	return rc
}

func printSummary(led *ledger.Ledger) {
	metrics := led.Metrics()
	snap := led.Snapshot()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append("Balance (SOL)", snap.Wallet.BalanceSOL.StringFixed(6))
	table.Append("Session P&L (SOL)", snap.Wallet.SessionPnLSOL.StringFixed(6))
	table.Append("Win rate", metrics.WinRate.StringFixed(4))
	table.Append("Avg win (SOL)", metrics.AvgWin.StringFixed(6))
	table.Append("Avg loss (SOL)", metrics.AvgLoss.StringFixed(6))
	table.Append("ROI", metrics.ROI.StringFixed(4))
	table.Append("Max drawdown (SOL)", metrics.MaxDrawdown.StringFixed(6))
	table.Render()
}
