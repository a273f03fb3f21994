package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"CandleFeed/internal/cache"
	"CandleFeed/internal/collector"
	"CandleFeed/internal/model"
)

// ErrAlreadyRunning is returned by Run when another Run is active.
var ErrAlreadyRunning = errors.New("feed: engine already running")

// Config holds engine configuration.
type Config struct {
	Symbols        []string
	PollInterval   time.Duration // Time between polls (default: 60s)
	Interval       string        // Bar size label (default: "1d")
	LookbackPeriod string        // Initial load window (default: "6mo")
	PollLookback   string        // Per-poll window (default: "2d")
	FetchTimeout   time.Duration // Per-fetch timeout (default: 30s)
	Concurrency    int           // Parallel fetches during Initialize (default: 4)
	IdleSleep      time.Duration // Sleep between schedule checks (default: 100ms)
}

// DefaultConfig returns sensible defaults with no symbols.
func DefaultConfig() Config {
	return Config{
		PollInterval:   60 * time.Second,
		Interval:       "1d",
		LookbackPeriod: "6mo",
		PollLookback:   "2d",
		FetchTimeout:   30 * time.Second,
		Concurrency:    4,
		IdleSleep:      100 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Interval == "" {
		c.Interval = d.Interval
	}
	if c.LookbackPeriod == "" {
		c.LookbackPeriod = d.LookbackPeriod
	}
	if c.PollLookback == "" {
		c.PollLookback = d.PollLookback
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = d.IdleSleep
	}
	seen := make(map[string]bool, len(c.Symbols))
	symbols := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	c.Symbols = symbols
	return c
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the clock used for poll scheduling.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithErrorHook registers a function called for every per-symbol failure.
// stage is StageInitialize or StagePoll. During Initialize the hook may be
// called from several goroutines at once.
func WithErrorHook(fn func(symbol, stage string, err error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// Engine polls a Fetcher for every tracked symbol, merges the results into
// a cache, and notifies a Handler when the cache reports a change.
type Engine struct {
	cfg     Config
	cache   *cache.Rolling
	fetcher collector.Fetcher
	logger  *slog.Logger
	now     func() time.Time
	onError func(symbol, stage string, err error)

	pollMu sync.Mutex // serializes poll passes

	mu       sync.Mutex
	handler  Handler
	lastPoll time.Time

	running atomic.Bool
	stopped atomic.Bool
}

// New creates an Engine. Zero config fields take their defaults.
func New(cfg Config, c *cache.Rolling, f collector.Fetcher, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg.withDefaults(),
		cache:   c,
		fetcher: f,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Symbols returns the tracked symbols in poll order.
func (e *Engine) Symbols() []string {
	return append([]string(nil), e.cfg.Symbols...)
}

// SetHandler registers the change handler. A nil handler clears it.
func (e *Engine) SetHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

func (e *Engine) currentHandler() Handler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handler
}

// LastPoll returns when the last poll pass started; zero before the first.
func (e *Engine) LastPoll() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPoll
}

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Initialize loads the initial lookback window for every symbol and
// returns the number of bars held per symbol afterwards. A failing symbol
// reports its current count (zero on a fresh cache); all failures are
// joined into the returned error.
func (e *Engine) Initialize(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	symbols := e.cfg.Symbols
	errs := make([]error, len(symbols))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			bars, err := e.fetch(ctx, sym, StageInitialize, e.cfg.LookbackPeriod)
			if err != nil {
				errs[i] = err
				e.report(sym, StageInitialize, err)
				return nil
			}
			e.cache.Update(sym, bars)
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[string]int, len(symbols))
	failed := 0
	for i, sym := range symbols {
		counts[sym] = e.cache.Len(sym)
		if errs[i] != nil {
			failed++
		}
	}

	e.logger.Info("initial load complete",
		"symbols", len(symbols),
		"failed", failed,
		"duration", time.Since(start),
	)
	return counts, errors.Join(errs...)
}

// Run polls until Stop is called or ctx is cancelled. It returns nil after
// Stop and ctx.Err() on cancellation. Stop is observed between iterations;
// a fetch or handler already in progress runs to completion.
func (e *Engine) Run(ctx context.Context) error {
	if e.stopped.Load() {
		return nil
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("feed started",
		"symbols", len(e.cfg.Symbols),
		"poll_interval", e.cfg.PollInterval,
		"interval", e.cfg.Interval,
	)

	for !e.stopped.Load() {
		if err := ctx.Err(); err != nil {
			e.logger.Info("feed cancelled")
			return err
		}
		e.tick(ctx)
		if !sleepCtx(ctx, e.cfg.IdleSleep) {
			e.logger.Info("feed cancelled")
			return ctx.Err()
		}
	}

	e.logger.Info("feed stopped")
	return nil
}

// Stop makes Run return before its next iteration. It is idempotent, safe
// to call before Run, and safe to call from inside a Handler. A stopped
// engine does not run again.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// tick polls when at least PollInterval has passed since the last poll.
// It reports whether a poll ran.
func (e *Engine) tick(ctx context.Context) bool {
	if !e.due(e.now()) {
		return false
	}
	e.pollMu.Lock()
	defer e.pollMu.Unlock()

	// A PollOnce may have finished while this tick waited for pollMu.
	now := e.now()
	if !e.due(now) {
		return false
	}
	e.pollLocked(ctx, now)
	return true
}

func (e *Engine) due(now time.Time) bool {
	last := e.LastPoll()
	return last.IsZero() || now.Sub(last) >= e.cfg.PollInterval
}

// PollOnce runs one poll pass immediately and returns the number of handler
// notifications made.
func (e *Engine) PollOnce(ctx context.Context) int {
	e.pollMu.Lock()
	defer e.pollMu.Unlock()
	return e.pollLocked(ctx, e.now())
}

// pollLocked runs one pass over every symbol. The caller holds pollMu.
func (e *Engine) pollLocked(ctx context.Context, now time.Time) int {
	start := time.Now()
	var changed, notified, failed int

	for _, sym := range e.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		bars, err := e.fetch(ctx, sym, StagePoll, e.cfg.PollLookback)
		if err != nil {
			failed++
			e.report(sym, StagePoll, err)
			continue
		}
		if !e.cache.Update(sym, bars) {
			continue
		}
		changed++

		h := e.currentHandler()
		if h == nil {
			continue
		}
		history, ok := e.cache.Get(sym)
		if !ok {
			continue
		}
		if e.notify(h, history, sym) {
			notified++
		}
	}

	e.mu.Lock()
	e.lastPoll = now
	e.mu.Unlock()

	e.logger.Debug("poll cycle complete",
		"symbols", len(e.cfg.Symbols),
		"changed", changed,
		"notified", notified,
		"errors", failed,
		"duration", time.Since(start),
	)
	return notified
}

// fetch retrieves and validates one batch for symbol.
func (e *Engine) fetch(ctx context.Context, symbol, stage, period string) ([]model.Candle, error) {
	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	bars, err := e.fetcher.FetchBars(fctx, symbol, period, e.cfg.Interval)
	if err != nil {
		return nil, &SourceFetchError{Symbol: symbol, Stage: stage, Err: err}
	}
	if err := collector.ValidateBatch(bars); err != nil {
		return nil, &MalformedBatchError{Symbol: symbol, Stage: stage, Err: err}
	}
	return bars, nil
}

func (e *Engine) report(symbol, stage string, err error) {
	e.logger.Warn("symbol skipped",
		"symbol", symbol,
		"stage", stage,
		"source", e.fetcher.Name(),
		"err", err,
	)
	if e.onError != nil {
		e.onError(symbol, stage, err)
	}
}

// notify calls the handler and recovers a panic so the loop keeps running.
func (e *Engine) notify(h Handler, history []model.Candle, symbol string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked", "symbol", symbol, "panic", r)
			ok = false
		}
	}()
	h.OnUpdate(history, symbol)
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
