package collector

import (
	"context"
	"sync"
	"time"

	"CandleFeed/internal/model"
)

// FetchCall records one FetchBars invocation on a MockFetcher.
type FetchCall struct {
	Symbol   string
	Period   string
	Interval string
}

// MockFetcher returns controllable data for development and testing.
//
// Queued batches for a symbol are returned first, one per call; after that
// Bars[symbol] is returned on every call. A symbol with neither gets
// generated bars around Price when Price is positive.
type MockFetcher struct {
	Price float64

	mu    sync.Mutex
	bars  map[string][]model.Candle
	queue map[string][][]model.Candle
	errs  map[string]error
	calls []FetchCall
}

// NewMockFetcher creates an empty MockFetcher.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		bars:  make(map[string][]model.Candle),
		queue: make(map[string][][]model.Candle),
		errs:  make(map[string]error),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

// Set makes every later call for symbol return bars.
func (m *MockFetcher) Set(symbol string, bars []model.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[symbol] = bars
}

// Push queues batches returned once each, in order, before Set data.
func (m *MockFetcher) Push(symbol string, batches ...[]model.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue[symbol] = append(m.queue[symbol], batches...)
}

// Fail makes calls for symbol return err until cleared with a nil error.
func (m *MockFetcher) Fail(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, symbol)
		return
	}
	m.errs[symbol] = err
}

// Calls returns a copy of the recorded calls.
func (m *MockFetcher) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FetchCall(nil), m.calls...)
}

func (m *MockFetcher) FetchBars(ctx context.Context, symbol, period, interval string) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, FetchCall{Symbol: symbol, Period: period, Interval: interval})
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	if q := m.queue[symbol]; len(q) > 0 {
		m.queue[symbol] = q[1:]
		return append([]model.Candle(nil), q[0]...), nil
	}
	if bars, ok := m.bars[symbol]; ok {
		return append([]model.Candle(nil), bars...), nil
	}
	if m.Price <= 0 {
		return nil, nil
	}
	days, err := PeriodDays(period)
	if err != nil {
		return nil, err
	}
	return generateMockBars(m.Price, days, time.Now()), nil
}

// generateMockBars builds one daily bar per day ending today.
func generateMockBars(basePrice float64, count int, now time.Time) []model.Candle {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	bars := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Candle{
			Time:   day.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
