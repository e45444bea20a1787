package forecast

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockForecaster/internal/artifact"
	"StockForecaster/internal/collector"
	"StockForecaster/internal/lstm"
	"StockForecaster/internal/model"
	"StockForecaster/internal/recorder"
)

// Friday.
var lastBar = time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)

type captureRecorder struct {
	recorder.NoopRecorder
	training   []*recorder.TrainingRun
	prediction []*recorder.PredictionRun
}

func (c *captureRecorder) RecordTraining(run *recorder.TrainingRun) error {
	c.training = append(c.training, run)
	return nil
}

func (c *captureRecorder) RecordPrediction(run *recorder.PredictionRun) error {
	c.prediction = append(c.prediction, run)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T, fetcher collector.Fetcher) (*Service, *captureRecorder) {
	t.Helper()
	dir := t.TempDir()
	logger := quietLogger()
	rec := &captureRecorder{}
	store := artifact.NewStore(filepath.Join(dir, "model.json.gz"), filepath.Join(dir, "scaler.gz"))
	svc := NewService(collector.NewCollector(fetcher, logger), store, rec, logger)
	svc.NewNetwork = func() (*lstm.Network, error) {
		cfg := lstm.DefaultConfig()
		cfg.Units1, cfg.Units2 = 4, 3
		return lstm.New(cfg, rand.New(rand.NewPCG(42, 7)))
	}
	svc.FitOptions = lstm.FitOptions{Epochs: 1, BatchSize: 32}
	return svc, rec
}

func TestPredictBeforeTrain(t *testing.T) {
	svc, rec := newTestService(t, &collector.MockFetcher{Price: 100, End: lastBar})

	_, err := svc.Predict(context.Background(), "AAPL", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.True(t, IsKind(err, KindPrediction))
	assert.Equal(t,
		"could not fetch or process stock data: default model or scaler not found, please train the model first",
		err.Error())
	require.Len(t, rec.prediction, 1)
	assert.Equal(t, recorder.StatusFailed, rec.prediction[0].Status)
}

func TestTrainThenPredict(t *testing.T) {
	svc, rec := newTestService(t, &collector.MockFetcher{Price: 100, End: lastBar})
	ctx := context.Background()

	res, err := svc.Train(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, TrainedMessage, res.Message)
	assert.True(t, svc.Store.Exists())

	require.Len(t, rec.training, 1)
	run := rec.training[0]
	assert.Equal(t, recorder.StatusOK, run.Status)
	assert.Equal(t, run.Points-60, run.Samples)
	assert.Equal(t, 1, run.Epochs)
	assert.Less(t, run.PriceMin, run.PriceMax)

	fc, err := svc.Predict(ctx, "AAPL", 5)
	require.NoError(t, err)
	assert.Len(t, fc.Predicted, 5)
	assert.Equal(t, []string{"2024-06-15", "2024-06-16", "2024-06-17", "2024-06-18", "2024-06-19"}, fc.Dates)
	require.Len(t, fc.Actual, 5)

	series, err := svc.Collector.Closes(ctx, "AAPL")
	require.NoError(t, err)
	closes := series.Closes()
	assert.InDelta(t, closes[len(closes)-1], fc.Actual[4], 0.005)

	for _, p := range append(fc.Predicted, fc.Actual...) {
		assert.InDelta(t, p, float64(int64(p*100+0.5))/100, 1e-9, "not rounded to cents: %v", p)
	}

	require.Len(t, rec.prediction, 1)
	assert.Equal(t, recorder.StatusOK, rec.prediction[0].Status)
	assert.Equal(t, 5, rec.prediction[0].Days)
}

func TestPredictActualShorterThanHorizon(t *testing.T) {
	svc, _ := newTestService(t, &collector.MockFetcher{Price: 50, End: lastBar})
	ctx := context.Background()
	_, err := svc.Train(ctx, "MSFT")
	require.NoError(t, err)

	points := collector.GenerateMockPoints(50, lastBar.AddDate(0, -4, 0), lastBar)
	require.Greater(t, len(points), 60)
	svc.Collector.Fetcher = &collector.MockFetcher{Points: points}

	days := len(points) + 10
	fc, err := svc.Predict(ctx, "MSFT", days)
	require.NoError(t, err)
	assert.Len(t, fc.Predicted, days)
	assert.Len(t, fc.Dates, days)
	assert.Len(t, fc.Actual, len(points))
}

func TestPredictInsufficientHistory(t *testing.T) {
	svc, _ := newTestService(t, &collector.MockFetcher{Price: 100, End: lastBar})
	ctx := context.Background()
	_, err := svc.Train(ctx, "AAPL")
	require.NoError(t, err)

	svc.Collector.Fetcher = &collector.MockFetcher{
		Points: collector.GenerateMockPoints(100, lastBar.AddDate(0, 0, -30), lastBar),
	}
	_, err = svc.Predict(ctx, "AAPL", 3)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPrediction))
	assert.Contains(t, err.Error(), "not enough data to predict")
}

func TestTrainDataUnavailable(t *testing.T) {
	svc, rec := newTestService(t, &collector.MockFetcher{Err: errors.New("connection refused")})

	_, err := svc.Train(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTraining))

	var due *collector.DataUnavailableError
	require.ErrorAs(t, err, &due)
	assert.Equal(t, "ZZZZ", due.Symbol)
	assert.Equal(t,
		"could not fetch or process stock data: failed to fetch data for ZZZZ: connection refused",
		err.Error())
	assert.False(t, svc.Store.Exists())
	require.Len(t, rec.training, 1)
	assert.Equal(t, recorder.StatusFailed, rec.training[0].Status)
}

func TestTrainTooFewPoints(t *testing.T) {
	points := []model.PricePoint{
		{Date: lastBar.AddDate(0, 0, -1), Close: 10},
		{Date: lastBar, Close: 11},
	}
	svc, _ := newTestService(t, &collector.MockFetcher{Points: points})

	_, err := svc.Train(context.Background(), "TINY")
	require.Error(t, err)
	assert.ErrorIs(t, err, lstm.ErrNoSamples)
	assert.False(t, svc.Store.Exists())
}

func TestPredictRejectsNonPositiveDays(t *testing.T) {
	svc, _ := newTestService(t, &collector.MockFetcher{Price: 100, End: lastBar})
	_, err := svc.Predict(context.Background(), "AAPL", 0)
	assert.True(t, IsKind(err, KindPrediction))
}
