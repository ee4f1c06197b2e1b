package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/dmoloce/stock-ta-ai/internal/analyst"
	"github.com/dmoloce/stock-ta-ai/internal/chart"
	"github.com/dmoloce/stock-ta-ai/internal/collector"
	"github.com/dmoloce/stock-ta-ai/internal/model"
	"github.com/dmoloce/stock-ta-ai/internal/notifier"
	"github.com/dmoloce/stock-ta-ai/internal/recorder"
	"github.com/dmoloce/stock-ta-ai/internal/session"
)

const sendRetries = 3

// Messenger delivers reports. *notifier.TelegramNotifier implements it.
type Messenger interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	SendPhotoWithRetry(ctx context.Context, png []byte, caption string, maxRetries int) error
}

// Options configures a watch run.
type Options struct {
	Indicators   []string
	LookbackDays int
	Chart        chart.Options
}

// Scheduler runs watchlist analyses on a cron schedule and answers bot
// commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Analyst   analyst.Analyst
	Recorder  recorder.Recorder
	Messenger Messenger
	Opts      Options
	Ctx       context.Context

	now func() time.Time
}

// NewScheduler creates a Scheduler. A nil messenger only logs reports.
func NewScheduler(ctx context.Context, col *collector.Collector, a analyst.Analyst, rec recorder.Recorder, m Messenger, opts Options) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 180
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Analyst:   a,
		Recorder:  rec,
		Messenger: m,
		Opts:      opts,
		Ctx:       ctx,
		now:       time.Now,
	}
}

// RegisterWatch analyzes every ticker on the given cron spec.
func (s *Scheduler) RegisterWatch(spec string, tickers []string) error {
	if len(tickers) == 0 {
		return fmt.Errorf("register watch: no tickers")
	}
	list := append([]string(nil), tickers...)
	if _, err := s.Cron.AddFunc(spec, func() { s.RunWatch(list) }); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	log.Info().Str("cron", spec).Strs("tickers", list).Msg("watch registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunWatch analyzes each ticker in turn. A failing ticker does not stop the
// others.
func (s *Scheduler) RunWatch(tickers []string) {
	log.Info().Strs("tickers", tickers).Msg("running watch task")
	for _, ticker := range tickers {
		if s.Ctx.Err() != nil {
			return
		}
		rec, img, err := s.Analyze(s.Ctx, ticker)
		if err != nil {
			log.Error().Err(err).Str("ticker", ticker).Msg("watch analysis")
			s.trySend(fmt.Sprintf("❌ %s analysis failed: %v", ticker, err))
			continue
		}
		s.tryDeliver(rec, img)
	}
}

// Analyze runs one full fetch, chart and recommendation cycle over the
// trailing lookback window.
func (s *Scheduler) Analyze(ctx context.Context, ticker string) (*model.AnalysisRecord, []byte, error) {
	end := s.today().AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -s.Opts.LookbackDays)

	sess := session.New(s.Collector, s.Analyst, s.Recorder, s.Opts.Chart)
	if len(s.Opts.Indicators) > 0 {
		if _, err := sess.Select(s.Opts.Indicators); err != nil {
			return nil, nil, err
		}
	}
	if _, err := sess.Fetch(ctx, ticker, start, end); err != nil {
		return nil, nil, err
	}
	return sess.Analyze(ctx)
}

// HandleCommand processes a bot command.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) notifier.Reply {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.Reply{Text: usage}
	}
	switch strings.ToLower(fields[0]) {
	case "/analyze":
		if len(fields) < 2 {
			return notifier.Reply{Text: "Usage: /analyze TICKER"}
		}
		rec, img, err := s.Analyze(ctx, fields[1])
		if err != nil {
			return notifier.Reply{Text: fmt.Sprintf("❌ %s analysis failed: %v", strings.ToUpper(fields[1]), err)}
		}
		return notifier.Reply{
			Text:    notifier.FormatAnalysisReport(rec),
			Photo:   img,
			Caption: notifier.FormatCaption(rec),
		}
	case "/history":
		symbol, limit := "", 10
		if len(fields) > 1 {
			symbol = strings.ToUpper(fields[1])
		}
		if len(fields) > 2 {
			if n, err := strconv.Atoi(fields[2]); err == nil && n > 0 {
				limit = n
			}
		}
		recs, err := s.Recorder.RecentAnalyses(symbol, limit)
		if err != nil {
			return notifier.Reply{Text: fmt.Sprintf("❌ history: %v", err)}
		}
		return notifier.Reply{Text: notifier.FormatHistory(symbol, recs)}
	default:
		return notifier.Reply{Text: usage}
	}
}

const usage = "Available commands:\n• /analyze TICKER\n• /history [TICKER] [LIMIT]"

func (s *Scheduler) today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Scheduler) trySend(text string) {
	if s.Messenger == nil {
		return
	}
	if err := s.Messenger.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

func (s *Scheduler) tryDeliver(rec *model.AnalysisRecord, img []byte) {
	if s.Messenger == nil {
		log.Info().Str("symbol", rec.Symbol).Str("verdict", string(rec.Verdict)).Msg("report not sent, no messenger")
		return
	}
	if err := s.Messenger.SendPhotoWithRetry(s.Ctx, img, notifier.FormatCaption(rec), sendRetries); err != nil {
		log.Error().Err(err).Str("symbol", rec.Symbol).Msg("send chart")
	}
	s.trySend(notifier.FormatAnalysisReport(rec))
}
