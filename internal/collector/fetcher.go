package collector

import (
	"context"
	"errors"
	"fmt"

	"StockForecaster/internal/model"
)

// ErrNoData is returned when a provider answers with an empty series.
var ErrNoData = errors.New("no data found")

// Fetcher defines the interface for fetching daily closing prices.
type Fetcher interface {
	// FetchDailyCloses returns closes for the lookback period (e.g. "1y", "6mo", "30d"), oldest first.
	FetchDailyCloses(ctx context.Context, symbol, period string) (*model.PriceSeries, error)
	Name() string
}

// DataUnavailableError reports that no usable closing prices could be obtained for a symbol.
type DataUnavailableError struct {
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("failed to fetch data for %s: %v", e.Symbol, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func noData(symbol string) error {
	return fmt.Errorf("%w for %s", ErrNoData, symbol)
}
