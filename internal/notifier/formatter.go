package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"CandleFeed/internal/model"
)

// SymbolSummary is one line of the cache digest.
type SymbolSummary struct {
	Symbol string
	Bars   int
	Last   model.Candle
	Loaded bool
}

// FormatOrder formats a breakout buy order.
func FormatOrder(o *model.Order) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚀 <b>BUY %s</b>\n\n", o.Symbol))
	b.WriteString(fmt.Sprintf("Shares: %d @ %.2f\n", o.Shares, o.EntryPrice))
	b.WriteString(fmt.Sprintf("Stop: %.2f (distance %.2f)\n", o.StopLoss, o.StopDistance))
	b.WriteString(fmt.Sprintf("ATR14: %.2f\n", o.ATR))
	b.WriteString(fmt.Sprintf("Risk: %.0f\n", o.RiskAmount))
	return b.String()
}

// FormatExit formats a closed trade.
func FormatExit(r *model.ExitResult) string {
	icon := "🟢"
	if r.PnL < 0 {
		icon = "🔴"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>SELL %s</b>\n\n", icon, r.Symbol))
	b.WriteString(fmt.Sprintf("Shares: %d\n", r.Shares))
	b.WriteString(fmt.Sprintf("Entry: %.2f | Exit: %.2f\n", r.EntryPrice, r.ExitPrice))
	b.WriteString(fmt.Sprintf("PnL: %+.2f (%+.1f%%)\n", r.PnL, r.PnLPct))
	b.WriteString(fmt.Sprintf("Reason: %s (SMA10 %.2f)\n", r.Reason, r.SMA10))
	return b.String()
}

// FormatLoadReport lists the bar count loaded per symbol at startup.
func FormatLoadReport(counts map[string]int) string {
	symbols := make([]string, 0, len(counts))
	for s := range counts {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var b strings.Builder
	for _, s := range symbols {
		b.WriteString(fmt.Sprintf("[%s] loaded %d candles\n", s, counts[s]))
	}
	return b.String()
}

// FormatStatus formats the cache state of every tracked symbol.
func FormatStatus(now time.Time, rows []SymbolSummary, lastPoll time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>CandleFeed</b> | %s\n\n", now.Format("2006-01-02 15:04")))
	if lastPoll.IsZero() {
		b.WriteString("Last poll: never\n\n")
	} else {
		b.WriteString(fmt.Sprintf("Last poll: %s\n\n", lastPoll.Format("15:04:05")))
	}
	for _, r := range rows {
		switch {
		case !r.Loaded:
			b.WriteString(fmt.Sprintf("%s: not loaded\n", r.Symbol))
		case r.Bars == 0:
			b.WriteString(fmt.Sprintf("%s: 0 bars\n", r.Symbol))
		default:
			b.WriteString(fmt.Sprintf("%s: %d bars, last %s close %.2f\n",
				r.Symbol, r.Bars, r.Last.Time.Format("2006-01-02"), r.Last.Close))
		}
	}
	return b.String()
}

// FormatPositions formats the open positions and account totals.
func FormatPositions(state model.PortfolioState, positions []model.Position) string {
	var b strings.Builder
	b.WriteString("📦 <b>Portfolio</b>\n\n")
	b.WriteString(fmt.Sprintf("Account: %.0f | Risk: %.1f%%\n", state.AccountSize, state.RiskPct*100))
	b.WriteString(fmt.Sprintf("Closed trades: %d | Realized PnL: %+.2f\n\n", state.ClosedTrades, state.RealizedPnL))
	if len(positions) == 0 {
		b.WriteString("No open positions\n")
		return b.String()
	}
	for _, p := range positions {
		b.WriteString(fmt.Sprintf("%s: %d @ %.2f, stop %.2f, since %s\n",
			p.Symbol, p.Shares, p.EntryPrice, p.StopLoss, p.EntryDate.Format("2006-01-02")))
	}
	return b.String()
}

// FormatDigest is the daily scheduled summary.
func FormatDigest(now time.Time, rows []SymbolSummary, lastPoll time.Time, state model.PortfolioState, positions []model.Position) string {
	return FormatStatus(now, rows, lastPoll) + "\n" + FormatPositions(state, positions)
}
