package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"StockForecaster/internal/logging"
	"StockForecaster/internal/model"
)

// Trainer is the part of forecast.Service the scheduler drives.
type Trainer interface {
	Train(ctx context.Context, symbol string) (*model.TrainResult, error)
}

// Scheduler periodically retrains the default model.
type Scheduler struct {
	Cron    *cron.Cron
	Trainer Trainer
	Ctx     context.Context

	logger *logrus.Logger
}

// NewScheduler creates a new Scheduler. Cron expressions include a seconds field.
func NewScheduler(ctx context.Context, trainer Trainer, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Trainer: trainer,
		Ctx:     ctx,
		logger:  logger,
	}
}

// RegisterRetrain schedules a training run for symbol on spec.
func (s *Scheduler) RegisterRetrain(spec, symbol string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RetrainNow(symbol) }); err != nil {
		return fmt.Errorf("register retrain task: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"cron": spec, "symbol": symbol}).Info("retrain task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RetrainNow trains on symbol immediately, logging the outcome.
func (s *Scheduler) RetrainNow(symbol string) {
	start := time.Now()
	log := s.logger.WithField("symbol", symbol)
	log.Info("scheduled retrain starting")

	res, err := s.Trainer.Train(s.Ctx, symbol)
	if err != nil {
		logging.Exception(log, err, "Scheduled training failed")
		return
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Infof("Training completed: %s", res.Message)
}
