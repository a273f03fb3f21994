package strategy

import (
	"context"
	"log/slog"
	"time"

	"CandleFeed/internal/model"
	"CandleFeed/internal/notifier"
	"CandleFeed/internal/portfolio"
	"CandleFeed/internal/recorder"
)

const notifyTimeout = 20 * time.Second

// Notifier delivers a formatted message to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Breakout runs the exit check, then the screen, signal and sizing steps on
// every history update it receives.
type Breakout struct {
	portfolio *portfolio.Manager
	notifier  Notifier
	recorder  recorder.Recorder
	logger    *slog.Logger
}

// NewBreakout creates the strategy. notifier and rec may be nil.
func NewBreakout(pm *portfolio.Manager, n Notifier, rec recorder.Recorder, logger *slog.Logger) *Breakout {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Breakout{portfolio: pm, notifier: n, recorder: rec, logger: logger}
}

// OnUpdate implements feed.Handler.
func (b *Breakout) OnUpdate(history []model.Candle, symbol string) {
	if exit := CheckExit(history, symbol, b.portfolio); exit != nil {
		b.logger.Info("exit",
			"symbol", symbol,
			"shares", exit.Shares,
			"price", exit.ExitPrice,
			"pnl", exit.PnL,
		)
		b.record(&recorder.TradeEvent{
			Side:       "SELL",
			Symbol:     symbol,
			PositionID: exit.PositionID,
			Shares:     exit.Shares,
			Price:      exit.ExitPrice,
			PnL:        exit.PnL,
			Reason:     string(exit.Reason),
		})
		b.notify(notifier.FormatExit(exit))
		return
	}

	if !Screen(history) || !Signal(history) {
		return
	}

	order, err := Execute(history, symbol, b.portfolio)
	if err != nil {
		b.logger.Error("execute order", "symbol", symbol, "err", err)
		return
	}
	if order == nil {
		return
	}
	b.logger.Info("buy",
		"symbol", symbol,
		"shares", order.Shares,
		"price", order.EntryPrice,
		"stop", order.StopLoss,
	)
	b.record(&recorder.TradeEvent{
		Side:       "BUY",
		Symbol:     symbol,
		PositionID: order.ID,
		Shares:     order.Shares,
		Price:      order.EntryPrice,
		StopLoss:   order.StopLoss,
		Reason:     "breakout",
	})
	b.notify(notifier.FormatOrder(order))
}

func (b *Breakout) record(evt *recorder.TradeEvent) {
	if err := b.recorder.RecordTrade(evt); err != nil {
		b.logger.Warn("record trade", "symbol", evt.Symbol, "err", err)
	}
}

func (b *Breakout) notify(text string) {
	if b.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := b.notifier.Notify(ctx, text); err != nil {
		b.logger.Warn("notify", "err", err)
	}
}
