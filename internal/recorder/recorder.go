package recorder

import "time"

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// TrainingRun records one /train invocation.
type TrainingRun struct {
	ID        string
	Symbol    string
	StartedAt time.Time
	Duration  time.Duration
	Status    string
	Error     string
	Points    int // closes fetched
	Samples   int // windowed training pairs
	Epochs    int
	FinalLoss float64 // mean squared error of the last epoch, normalised units
	PriceMin  float64
	PriceMax  float64
}

// PredictionRun records one /predict invocation.
type PredictionRun struct {
	ID             string
	Symbol         string
	StartedAt      time.Time
	Duration       time.Duration
	Status         string
	Error          string
	Days           int
	LastClose      float64
	LastPrediction float64
}

// RunSummary is a row of the combined run history.
type RunSummary struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "train" or "predict"
	Symbol     string    `json:"symbol"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Recorder persists run history for later inspection.
type Recorder interface {
	RecordTraining(run *TrainingRun) error
	RecordPrediction(run *PredictionRun) error
	Recent(limit int) ([]RunSummary, error)
	Close() error
}
