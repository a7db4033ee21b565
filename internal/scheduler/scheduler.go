// Package scheduler runs the watchlist analysis on a cron schedule and
// answers chat commands.
package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"PriceScope/internal/analyzer"
	"PriceScope/internal/collector"
	"PriceScope/internal/exporter"
	"PriceScope/internal/model"
	"PriceScope/internal/notifier"
	"PriceScope/internal/recorder"
)

const (
	sendRetries  = 3
	historyLimit = 5
)

// Options selects what the periodic job analyses and where it exports.
type Options struct {
	Watchlist    []string
	Period       string
	ExportDir    string
	ExportFormat string
}

// Scheduler manages the cron task and the chat command surface.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer *analyzer.Analyzer
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Log      zerolog.Logger
	Opts     Options
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, an *analyzer.Analyzer, n notifier.Notifier, rec recorder.Recorder, log zerolog.Logger, opts Options) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Analyzer: an,
		Notifier: n,
		Recorder: rec,
		Log:      log.With().Str("component", "scheduler").Logger(),
		Opts:     opts,
		Ctx:      ctx,
	}
}

// Register adds the watchlist analysis job.
func (s *Scheduler) Register(analysisCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, s.RunNow); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info().Int("symbols", len(s.Opts.Watchlist)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info().Msg("scheduler stopped")
}

// RunNow analyses every watchlist symbol immediately (cron job / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.Log.Info().Str("period", s.Opts.Period).Msg("running watchlist analysis")
	for _, symbol := range s.Opts.Watchlist {
		if s.Ctx.Err() != nil {
			return
		}
		req := collector.HistoryRequest{Symbol: symbol, Period: s.Opts.Period}
		res, err := s.AnalyzeAndRecord(s.Ctx, req)
		if err != nil {
			s.Log.Error().Err(err).Str("symbol", symbol).Msg("watchlist analysis failed")
			s.trySend(failureMessage(symbol, err))
			continue
		}
		if res.Alert != nil {
			s.trySend(notifier.FormatFluctuationAlert(res.Alert))
		}
	}
}

// AnalyzeAndRecord runs one analysis, persists it with its alert and exports
// it when an export directory is configured. Persistence and export failures
// are logged; only the analysis error is returned.
func (s *Scheduler) AnalyzeAndRecord(ctx context.Context, req collector.HistoryRequest) (*model.Analysis, error) {
	res, err := s.Analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	runID, err := s.Recorder.RecordAnalysis(res)
	if err != nil {
		s.Log.Error().Err(err).Str("symbol", req.Symbol).Msg("record analysis")
	} else if res.Alert != nil {
		if err := s.Recorder.RecordAlert(runID, res.Alert); err != nil {
			s.Log.Error().Err(err).Str("symbol", req.Symbol).Msg("record alert")
		}
	}

	if s.Opts.ExportDir != "" {
		out, err := exporter.Export(res, s.Opts.ExportDir, s.Opts.ExportFormat)
		if err != nil {
			s.Log.Error().Err(err).Str("symbol", req.Symbol).Msg("export analysis")
		} else {
			s.Log.Info().Str("path", out.Path).Bool("overwrote", out.Overwrote).Msg("analysis exported")
		}
	}
	return res, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	// Group chats address commands as /analyze@BotName.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/analyze":
		if len(args) == 0 {
			return "Usage: /analyze SYMBOL [PERIOD]"
		}
		req := collector.HistoryRequest{Symbol: strings.ToUpper(args[0]), Period: s.Opts.Period}
		if len(args) > 1 {
			req.Period = args[1]
		}
		if err := req.Validate(); err != nil {
			return fmt.Sprintf("❌ %s (periods: %s)", html.EscapeString(err.Error()), strings.Join(collector.Periods, " "))
		}
		res, err := s.AnalyzeAndRecord(ctx, req)
		if err != nil {
			return failureMessage(req.Symbol, err)
		}
		return notifier.FormatAnalysisReport(res)
	case "/history":
		if len(args) == 0 {
			return "Usage: /history SYMBOL"
		}
		runs, err := s.Recorder.RecentRuns(args[0], historyLimit)
		if err != nil {
			s.Log.Error().Err(err).Msg("load history")
			return fmt.Sprintf("❌ Could not load history: %s", html.EscapeString(err.Error()))
		}
		return notifier.FormatHistory(args[0], runs)
	default:
		return notifier.HelpText
	}
}

// failureMessage escapes the error text, which may carry a provider's HTML
// error page, for Telegram's HTML parse mode.
func failureMessage(symbol string, err error) string {
	return fmt.Sprintf("❌ Analysis of %s failed: %s", html.EscapeString(symbol), html.EscapeString(err.Error()))
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.Log.Error().Err(err).Msg("send notification")
	}
}
