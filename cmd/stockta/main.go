package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dmoloce/stock-ta-ai/internal/analyst"
	"github.com/dmoloce/stock-ta-ai/internal/chart"
	"github.com/dmoloce/stock-ta-ai/internal/collector"
	"github.com/dmoloce/stock-ta-ai/internal/config"
	"github.com/dmoloce/stock-ta-ai/internal/logger"
	"github.com/dmoloce/stock-ta-ai/internal/recorder"
	"github.com/dmoloce/stock-ta-ai/internal/session"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	col      *collector.Collector
	analyst  analyst.Analyst
	recorder recorder.Recorder
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgPath string
	var pretty bool

	root := &cobra.Command{
		Use:          "stockta",
		Short:        "Technical analysis charts with AI-assisted recommendations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgPath == "" {
				cfgPath = "configs/config.yaml"
				if v := os.Getenv("CONFIG_PATH"); v != "" {
					cfgPath = v
				}
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.Log.Level, pretty || cfg.Log.Pretty)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			return a.init(cfg)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.recorder != nil {
				_ = a.recorder.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default configs/config.yaml or $CONFIG_PATH)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs")

	root.AddCommand(
		newFetchCmd(a),
		newChartCmd(a),
		newAnalyzeCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) init(cfg *config.Config) error {
	a.cfg = cfg

	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	}
	if cfg.DataSource.CacheTTL > 0 {
		fetcher = collector.NewCachedFetcher(fetcher, cfg.DataSource.CacheTTL)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")
	a.col = collector.NewCollector(fetcher)

	switch cfg.Analyst.Provider {
	case "openai":
		a.analyst = analyst.NewOpenAIAnalyst(cfg.Analyst.APIKey, cfg.Analyst.BaseURL, cfg.Analyst.Model)
	default:
		a.analyst = analyst.NewOllamaAnalyst(cfg.Analyst.BaseURL, cfg.Analyst.Model, cfg.Analyst.Timeout)
	}

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
		}
	}
	return nil
}

func (a *app) chartOptions() chart.Options {
	return chart.Options{Width: a.cfg.Chart.Width, Height: a.cfg.Chart.Height}
}

// newSession builds a session with the configured indicator selection.
func (a *app) newSession(indicators []string) (*session.Session, error) {
	sess := session.New(a.col, a.analyst, a.recorder, a.chartOptions())
	if len(indicators) == 0 {
		indicators = a.cfg.Indicators
	}
	if _, err := sess.Select(indicators); err != nil {
		return nil, err
	}
	return sess, nil
}
