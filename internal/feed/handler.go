package feed

import "CandleFeed/internal/model"

// Handler receives a symbol's full retained history after the cache
// reports a change. history is a private copy, ascending by time.
type Handler interface {
	OnUpdate(history []model.Candle, symbol string)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(history []model.Candle, symbol string)

func (f HandlerFunc) OnUpdate(history []model.Candle, symbol string) {
	f(history, symbol)
}

// Handlers fans one update out to several handlers in order. Each handler
// gets its own copy of the history. Nil handlers are skipped.
func Handlers(hs ...Handler) Handler {
	var out multiHandler
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

type multiHandler []Handler

func (m multiHandler) OnUpdate(history []model.Candle, symbol string) {
	for i, h := range m {
		if i == len(m)-1 {
			h.OnUpdate(history, symbol)
			return
		}
		h.OnUpdate(append([]model.Candle(nil), history...), symbol)
	}
}
