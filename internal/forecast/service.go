// Package forecast wires data acquisition, windowing, the LSTM model and the
// artifact store into the train and predict operations.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"StockForecaster/internal/artifact"
	"StockForecaster/internal/collector"
	"StockForecaster/internal/dataset"
	"StockForecaster/internal/lstm"
	"StockForecaster/internal/metrics"
	"StockForecaster/internal/model"
	"StockForecaster/internal/recorder"
)

// TrainedMessage is returned by a successful Train.
const TrainedMessage = "Model trained and saved as default."

// Service trains and serves the single default model.
type Service struct {
	Collector *collector.Collector
	Store     *artifact.Store
	Recorder  recorder.Recorder

	// NewNetwork builds the untrained network; tests swap in a seeded one.
	NewNetwork func() (*lstm.Network, error)
	FitOptions lstm.FitOptions

	logger *logrus.Logger
}

// NewService creates a Service using the fixed production network shape.
func NewService(col *collector.Collector, store *artifact.Store, rec recorder.Recorder, logger *logrus.Logger) *Service {
	return &Service{
		Collector: col,
		Store:     store,
		Recorder:  rec,
		NewNetwork: func() (*lstm.Network, error) {
			return lstm.New(lstm.DefaultConfig(), nil)
		},
		FitOptions: lstm.DefaultFitOptions(),
		logger:     logger,
	}
}

// Train fetches a year of closes for symbol, fits a new scaler and network on
// them and overwrites the default artifacts.
func (s *Service) Train(ctx context.Context, symbol string) (*model.TrainResult, error) {
	run := &recorder.TrainingRun{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		StartedAt: time.Now(),
		FinalLoss: math.NaN(),
	}
	err := s.train(ctx, symbol, run)
	run.Duration = time.Since(run.StartedAt)
	run.Status = recorder.StatusOK
	if err != nil {
		run.Status = recorder.StatusFailed
		run.Error = err.Error()
	}
	metrics.TrainTotal.WithLabelValues(run.Status).Inc()
	metrics.TrainDuration.Observe(run.Duration.Seconds())
	if recErr := s.Recorder.RecordTraining(run); recErr != nil {
		s.logger.WithError(recErr).Warn("record training run")
	}
	if err != nil {
		return nil, &Error{Kind: KindTraining, Err: err}
	}
	return &model.TrainResult{Message: TrainedMessage}, nil
}

func (s *Service) train(ctx context.Context, symbol string, run *recorder.TrainingRun) error {
	series, err := s.Collector.Closes(ctx, symbol)
	if err != nil {
		return err
	}
	closes := series.Closes()
	run.Points = len(closes)

	scaler, err := dataset.Fit(closes)
	if err != nil {
		return err
	}
	run.PriceMin, run.PriceMax = scaler.Min, scaler.Max

	net, err := s.NewNetwork()
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	inputs, targets := dataset.Windows(scaler.Transform(closes), net.Config().Window)
	run.Samples = len(inputs)

	log := s.logger.WithFields(logrus.Fields{"symbol": symbol, "run": run.ID})
	opts := s.FitOptions
	opts.OnEpoch = func(epoch int, loss float64) {
		log.WithFields(logrus.Fields{"epoch": epoch, "loss": loss}).Debug("epoch finished")
	}
	report, err := net.Fit(inputs, targets, opts)
	run.Epochs = len(report.Losses)
	run.FinalLoss = report.FinalLoss()
	if err != nil {
		return fmt.Errorf("fit model on %d samples: %w", len(inputs), err)
	}

	if err := s.Store.Save(net, scaler); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"samples": run.Samples, "loss": run.FinalLoss}).Info("model saved")
	return nil
}

// Predict rolls the saved model forward days steps from the latest closes of symbol.
func (s *Service) Predict(ctx context.Context, symbol string, days int) (*model.Forecast, error) {
	run := &recorder.PredictionRun{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Days:      days,
		StartedAt: time.Now(),
	}
	fc, err := s.predict(ctx, symbol, days, run)
	run.Duration = time.Since(run.StartedAt)
	run.Status = recorder.StatusOK
	if err != nil {
		run.Status = recorder.StatusFailed
		run.Error = err.Error()
	}
	metrics.PredictTotal.WithLabelValues(run.Status).Inc()
	metrics.PredictDuration.Observe(run.Duration.Seconds())
	if recErr := s.Recorder.RecordPrediction(run); recErr != nil {
		s.logger.WithError(recErr).Warn("record prediction run")
	}
	if err != nil {
		return nil, &Error{Kind: KindPrediction, Err: err}
	}
	return fc, nil
}

func (s *Service) predict(ctx context.Context, symbol string, days int, run *recorder.PredictionRun) (*model.Forecast, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	if !s.Store.Exists() {
		return nil, ErrNotTrained
	}

	series, err := s.Collector.Closes(ctx, symbol)
	if err != nil {
		return nil, err
	}

	net, scaler, err := s.Store.Load()
	if errors.Is(err, artifact.ErrNotFound) {
		return nil, ErrNotTrained
	}
	if err != nil {
		return nil, err
	}

	closes := series.Closes()
	run.LastClose = closes[len(closes)-1]
	window, err := dataset.SeedWindow(scaler.Transform(closes), net.Config().Window)
	if err != nil {
		return nil, err
	}

	scaled := make([]float64, 0, days)
	for i := 0; i < days; i++ {
		next, err := net.Predict(window)
		if err != nil {
			return nil, err
		}
		scaled = append(scaled, next)
		dataset.Slide(window, next)
	}
	predicted := scaler.InverseTransform(scaled)
	run.LastPrediction = predicted[len(predicted)-1]

	last := series.LastDate()
	dates := make([]string, days)
	for i := range dates {
		dates[i] = last.AddDate(0, 0, i+1).Format("2006-01-02")
	}

	actual := closes[max(len(closes)-days, 0):]
	return &model.Forecast{
		Predicted: round2(predicted),
		Dates:     dates,
		Actual:    round2(actual),
	}, nil
}

func round2(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = decimal.NewFromFloat(x).Round(2).InexactFloat64()
	}
	return out
}

// Trained reports whether both default artifacts are present.
func (s *Service) Trained() bool {
	return s.Store.Exists()
}
