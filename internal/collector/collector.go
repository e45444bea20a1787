package collector

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"StockForecaster/internal/model"
)

// DefaultPeriod is the lookback used for both training and prediction.
const DefaultPeriod = "1y"

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Points []model.PricePoint
	Err    error
	// End is the date of the last generated bar; zero means today.
	End time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(_ context.Context, symbol, period string) (*model.PriceSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Points != nil {
		return &model.PriceSeries{Symbol: symbol, Points: m.Points, FetchedAt: time.Now()}, nil
	}
	end := m.End
	if end.IsZero() {
		end = calendarDate(time.Now())
	}
	start, err := periodStart(end, period)
	if err != nil {
		return nil, err
	}
	return &model.PriceSeries{
		Symbol:    symbol,
		Points:    GenerateMockPoints(m.Price, start, end),
		FetchedAt: time.Now(),
	}, nil
}

// GenerateMockPoints produces one weekday close per day in (start, end], drifting around basePrice.
func GenerateMockPoints(basePrice float64, start, end time.Time) []model.PricePoint {
	var points []model.PricePoint
	for d := calendarDate(start).AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		i := float64(len(points))
		p := basePrice * (1 + i*0.001 + 0.02*math.Sin(i/5))
		points = append(points, model.PricePoint{Date: d, Close: p})
	}
	return points
}

// Collector fetches closing-price history for the forecasting pipeline.
type Collector struct {
	Fetcher Fetcher
	Period  string
	logger  *logrus.Logger
}

// NewCollector creates a new Collector using DefaultPeriod.
func NewCollector(fetcher Fetcher, logger *logrus.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Period: DefaultPeriod, logger: logger}
}

// Closes fetches the price series for symbol. Every failure, including transport
// errors, is reported as a *DataUnavailableError carrying the symbol.
func (c *Collector) Closes(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	series, err := c.Fetcher.FetchDailyCloses(ctx, symbol, c.Period)
	if err != nil {
		var due *DataUnavailableError
		if errors.As(err, &due) {
			return nil, err
		}
		return nil, &DataUnavailableError{Symbol: symbol, Err: err}
	}
	if series == nil || len(series.Points) == 0 {
		return nil, &DataUnavailableError{Symbol: symbol, Err: noData(symbol)}
	}

	c.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"source": c.Fetcher.Name(),
		"points": len(series.Points),
	}).Debug("price history fetched")
	return series, nil
}
