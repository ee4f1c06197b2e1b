package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dmoloce/stock-ta-ai/internal/config"
	"github.com/dmoloce/stock-ta-ai/internal/model"
	"github.com/dmoloce/stock-ta-ai/internal/notifier"
	"github.com/dmoloce/stock-ta-ai/internal/scheduler"
	"github.com/dmoloce/stock-ta-ai/internal/server"
	"github.com/dmoloce/stock-ta-ai/internal/session"
)

type rangeFlags struct {
	ticker, start, end string
	indicators         []string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ticker, "ticker", "t", "", "ticker symbol (default from config)")
	cmd.Flags().StringVar(&f.start, "start", "", "start date YYYY-MM-DD, inclusive")
	cmd.Flags().StringVar(&f.end, "end", "", "end date YYYY-MM-DD, exclusive")
	cmd.Flags().StringSliceVarP(&f.indicators, "indicators", "i", nil, "indicators to overlay, e.g. SMA20,VWAP")
}

// load fetches the requested range into a fresh session.
func (f *rangeFlags) load(ctx context.Context, a *app) (*session.Session, *model.PriceSeries, error) {
	ticker := f.ticker
	if ticker == "" {
		ticker = a.cfg.DataSource.Ticker
	}
	start, end, err := a.cfg.DateRange()
	if err != nil {
		return nil, nil, err
	}
	if f.start != "" {
		if start, err = config.ParseDate(f.start); err != nil {
			return nil, nil, fmt.Errorf("--start: %w", err)
		}
	}
	if f.end != "" {
		if end, err = config.ParseDate(f.end); err != nil {
			return nil, nil, fmt.Errorf("--end: %w", err)
		}
	}
	sess, err := a.newSession(f.indicators)
	if err != nil {
		return nil, nil, err
	}
	series, err := sess.Fetch(ctx, ticker, start, end)
	if err != nil {
		return nil, nil, err
	}
	return sess, series, nil
}

func newFetchCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch daily bars and print the latest indicator values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, series, err := rf.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			snap, err := sess.Snapshot()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			last := series.Bars[series.Len()-1]
			fmt.Fprintf(out, "%s: %d bars %s..%s, last close %.2f\n", series.Symbol, series.Len(),
				series.First().Format(time.DateOnly), series.Last().Format(time.DateOnly), last.Close)
			for _, o := range snap.Overlays {
				if v, ok := o.LastDefined(); ok {
					fmt.Fprintf(out, "  %-10s %.2f\n", o.Name, v)
				} else {
					fmt.Fprintf(out, "  %-10s undefined\n", o.Name)
				}
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newChartCmd(a *app) *cobra.Command {
	var rf rangeFlags
	var output string
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a candlestick chart with indicator overlays to PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, series, err := rf.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			img, err := sess.Chart()
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.ReplaceAll(series.Symbol, "^", "") + ".png"
			}
			if err := os.WriteFile(output, img, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", output)
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <TICKER>.png)")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var rf rangeFlags
	var output string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ask the vision model for a buy/sell/hold recommendation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Analyst.Timeout+time.Minute)
			defer cancel()
			sess, _, err := rf.load(ctx, a)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Analyzing the chart, please wait...")
			rec, img, err := sess.Analyze(ctx)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, img, 0o644); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recommendation: %s\n\n%s\n", rec.Verdict, strings.TrimSpace(rec.Response))
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "also save the analyzed chart to this file")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.newSession(nil)
			if err != nil {
				return err
			}
			srv := server.New(sess, a.cfg.Server.Addr, debug)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			log.Info().Msg("shutdown signal received, stopping...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "gin debug mode")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var runNow, noTelegram bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Analyze the watchlist on a cron schedule and report via Telegram",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tickers := a.cfg.Watch.Tickers
			if len(tickers) == 0 {
				tickers = []string{a.cfg.DataSource.Ticker}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var tn *notifier.TelegramNotifier
			var messenger scheduler.Messenger
			if !noTelegram {
				if err := a.cfg.ValidateTelegram(); err != nil {
					return fmt.Errorf("config validation: %w", err)
				}
				tn = notifier.NewTelegramNotifier("", a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy)
				messenger = tn
			}

			sched := scheduler.NewScheduler(ctx, a.col, a.analyst, a.recorder, messenger, scheduler.Options{
				Indicators:   a.cfg.Indicators,
				LookbackDays: a.cfg.Watch.LookbackDays,
				Chart:        a.chartOptions(),
			})
			if err := sched.RegisterWatch(a.cfg.Watch.Cron, tickers); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}
			if runNow {
				go sched.RunWatch(tickers)
			}

			log.Info().Msg("watching. Press Ctrl+C to stop.")
			<-ctx.Done()
			log.Info().Msg("shutdown signal received, stopping...")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", os.Getenv("RUN_ON_START") == "true", "run the watchlist once at startup")
	cmd.Flags().BoolVar(&noTelegram, "no-telegram", false, "log reports instead of sending them")
	return cmd
}
