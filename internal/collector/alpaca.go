package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"StockForecaster/internal/model"
)

// barsClient is the subset of the Alpaca market data client used here.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaFetcher implements Fetcher using the Alpaca market data API.
type AlpacaFetcher struct {
	Client barsClient
	now    func() time.Time
}

// NewAlpacaFetcher creates a fetcher authenticated with the given key pair.
func NewAlpacaFetcher(apiKey, apiSecret string) *AlpacaFetcher {
	return &AlpacaFetcher{
		Client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		now: time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

// FetchDailyCloses fetches one daily bar per trading day over the lookback period.
// The Alpaca SDK call is not context-aware; ctx is only checked before the request.
func (f *AlpacaFetcher) FetchDailyCloses(ctx context.Context, symbol, period string) (*model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := f.now()
	start, err := periodStart(now, period)
	if err != nil {
		return nil, err
	}

	bars, err := f.Client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca fetch: %w", err)
	}
	if len(bars) == 0 {
		return nil, noData(symbol)
	}

	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Close == 0 {
			continue
		}
		points = append(points, model.PricePoint{Date: calendarDate(b.Timestamp.UTC()), Close: b.Close})
	}
	if len(points) == 0 {
		return nil, noData(symbol)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return &model.PriceSeries{Symbol: symbol, Points: points, FetchedAt: now}, nil
}
