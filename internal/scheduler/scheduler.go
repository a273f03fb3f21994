package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CandleFeed/internal/cache"
	"CandleFeed/internal/feed"
	"CandleFeed/internal/notifier"
	"CandleFeed/internal/portfolio"
	"CandleFeed/internal/strategy"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic digest and answers operator commands.
type Scheduler struct {
	Cron      *cron.Cron
	Cache     *cache.Rolling
	Engine    *feed.Engine
	Portfolio *portfolio.Manager
	Notifier  strategy.Notifier
	Ctx       context.Context

	now    func() time.Time
	logger *slog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, c *cache.Rolling, eng *feed.Engine, pm *portfolio.Manager, n strategy.Notifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Cache:     c,
		Engine:    eng,
		Portfolio: pm,
		Notifier:  n,
		Ctx:       ctx,
		now:       time.Now,
		logger:    logger,
	}
}

// RegisterAll registers the digest job. An empty spec disables it.
func (s *Scheduler) RegisterAll(digestCron string) error {
	if digestCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) digestTask() {
	s.logger.Info("running digest task")
	s.trySend(s.Digest())
}

// Digest builds the cache and portfolio summary.
func (s *Scheduler) Digest() string {
	return notifier.FormatDigest(s.now(), s.summaries(), s.Engine.LastPoll(),
		s.Portfolio.GetState(), s.Portfolio.Positions())
}

func (s *Scheduler) summaries() []notifier.SymbolSummary {
	symbols := s.Engine.Symbols()
	rows := make([]notifier.SymbolSummary, 0, len(symbols))
	for _, sym := range symbols {
		row := notifier.SymbolSummary{Symbol: sym}
		if n := s.Cache.Len(sym); n > 0 {
			row.Loaded, row.Bars = true, n
			row.Last, _ = s.Cache.Last(sym)
		} else if _, ok := s.Cache.Get(sym); ok {
			row.Loaded = true
		}
		rows = append(rows, row)
	}
	return rows
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status":
		return notifier.FormatStatus(s.now(), s.summaries(), s.Engine.LastPoll())
	case "/positions":
		return notifier.FormatPositions(s.Portfolio.GetState(), s.Portfolio.Positions())
	case "/refresh":
		n := s.Engine.PollOnce(s.Ctx)
		return fmt.Sprintf("🔄 Poll complete, %d updates delivered", n)
	case "/digest":
		return s.Digest()
	default:
		return "Commands:\n• /status\n• /positions\n• /refresh\n• /digest"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(s.Ctx, text); err != nil {
		s.logger.Error("send notification", "err", err)
	}
}
