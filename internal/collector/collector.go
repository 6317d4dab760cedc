package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Days   int
	Series map[string][]model.Bar
	Errors map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDaily(_ context.Context, symbol string) (*model.BarSeries, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Series[symbol]; ok {
		return model.NewBarSeries(symbol, bars)
	}
	if m.Price <= 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no mock data for %s", symbol)
	}
	days := m.Days
	if days <= 0 {
		days = 300
	}
	return model.NewBarSeries(symbol, generateMockBars(m.Price, days))
}

// Calls returns how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func generateMockBars(basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	start := model.Day(time.Now()).AddDate(0, 0, -count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// StaticLister returns a fixed symbol list.
type StaticLister []string

func (l StaticLister) ListSymbols(context.Context) ([]string, error) {
	out := make([]string, len(l))
	copy(out, l)
	return out, nil
}

// FallbackLister asks Primary first and uses Fallback when it fails or returns nothing.
type FallbackLister struct {
	Primary  Lister
	Fallback Lister
}

func (l FallbackLister) ListSymbols(ctx context.Context) ([]string, error) {
	symbols, err := l.Primary.ListSymbols(ctx)
	if err == nil && len(symbols) > 0 {
		return symbols, nil
	}
	if l.Fallback == nil {
		if err == nil {
			err = errors.New(errors.ErrCodeSymbolListFailed, "symbol list is empty")
		}
		return nil, err
	}
	fallback, ferr := l.Fallback.ListSymbols(ctx)
	if ferr != nil {
		return nil, fmt.Errorf("primary: %v, fallback: %w", err, ferr)
	}
	return fallback, nil
}
