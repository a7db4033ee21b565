package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"PriceScope/internal/analyzer"
	"PriceScope/internal/api"
	"PriceScope/internal/collector"
	"PriceScope/internal/config"
	"PriceScope/internal/exporter"
	"PriceScope/internal/logging"
	"PriceScope/internal/notifier"
	"PriceScope/internal/recorder"
	"PriceScope/internal/scheduler"
)

type flags struct {
	configPath string
	symbol     string
	period     string
	start      string
	end        string
	export     string
	outDir     string
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "configs/config.yaml", "path to the YAML config file")
	flag.StringVar(&f.symbol, "symbol", "", "analyse one ticker and exit (daemon mode when empty)")
	flag.StringVar(&f.period, "period", "", "history period: 1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max")
	flag.StringVar(&f.start, "start", "", "start date YYYY-MM-DD (used when -period is empty)")
	flag.StringVar(&f.end, "end", "", "end date YYYY-MM-DD, exclusive")
	flag.StringVar(&f.export, "export", "", "export format: csv or xlsx")
	flag.StringVar(&f.outDir, "out", "", "export directory (defaults to export.dir)")
	flag.Parse()
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		f.configPath = v
	}
	return f
}

func main() {
	f := parseFlags()
	boot := logging.NewLogger("info", true)

	cfg, err := config.Load(f.configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("config validation")
	}
	log := logging.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	fetcher, closeCache := buildFetcher(cfg, log)
	defer closeCache()
	log.Info().Str("provider", fetcher.Name()).Msg("data source ready")

	rec := buildRecorder(cfg, log)
	defer rec.Close()

	an := analyzer.New(fetcher, cfg.Params(), log)

	if f.symbol != "" {
		if err := runOnce(cfg, f, an, rec, log); err != nil {
			log.Error().Err(err).Msg("analysis failed")
			os.Exit(1)
		}
		return
	}
	if err := runDaemon(cfg, an, rec, log); err != nil {
		log.Fatal().Err(err).Msg("daemon stopped")
	}
}

func buildFetcher(cfg *config.Config, log zerolog.Logger) (collector.Fetcher, func()) {
	ds := cfg.DataSource
	var fetcher collector.Fetcher
	switch ds.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, ds.Proxy, ds.RequestsPerSecond)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(ds.Proxy, ds.RequestsPerSecond)
	}

	if cfg.Cache.RedisAddr == "" {
		return fetcher, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	return collector.NewCachedFetcher(fetcher, client, cfg.Cache.TTL, log), func() { client.Close() }
}

func buildRecorder(cfg *config.Config, log zerolog.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func runOnce(cfg *config.Config, f flags, an *analyzer.Analyzer, rec recorder.Recorder, log zerolog.Logger) error {
	req := collector.HistoryRequest{Symbol: f.symbol, Period: f.period, Start: f.start, End: f.end}
	if req.Period == "" && req.Start == "" && req.End == "" {
		req.Period = cfg.DataSource.DefaultPeriod
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, an, notifier.NoopNotifier{}, rec, log, scheduler.Options{})
	res, err := sched.AnalyzeAndRecord(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(notifier.PlainText(notifier.FormatAnalysisReport(res)))

	if f.export == "" {
		return nil
	}
	dir := f.outDir
	if dir == "" {
		dir = cfg.Export.Dir
	}
	out, err := exporter.Export(res, dir, f.export)
	if err != nil {
		return err
	}
	if out.Overwrote {
		fmt.Printf("Replaced existing file %s\n", out.Path)
	}
	fmt.Printf("Data saved to %s\n", out.Path)
	return nil
}

func runDaemon(cfg *config.Config, an *analyzer.Analyzer, rec recorder.Recorder, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)
		n = tn
	} else {
		log.Warn().Msg("telegram not configured, alerts are only logged")
	}

	sched := scheduler.NewScheduler(ctx, an, n, rec, log, scheduler.Options{
		Watchlist:    cfg.DataSource.Watchlist,
		Period:       cfg.DataSource.DefaultPeriod,
		ExportDir:    cfg.Export.Dir,
		ExportFormat: cfg.Export.Format,
	})
	if err := sched.Register(cfg.Schedule.AnalysisCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	var srv *http.Server
	if cfg.HTTP.ListenAddr != "" {
		srv = &http.Server{
			Addr:              cfg.HTTP.ListenAddr,
			Handler:           api.NewServer(sched, rec, cfg.DataSource.DefaultPeriod, log).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("http api listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server")
				stop()
			}
		}()
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, analysing watchlist now")
		go sched.RunNow()
	}

	log.Info().Msg("PriceScope is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}
	return nil
}
