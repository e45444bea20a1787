package model

// DefaultForecastDays is used when a request omits days.
const DefaultForecastDays = 10

// StockRequest is the body accepted by /train and /predict.
// Days is ignored by /train.
type StockRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Days   *int   `json:"days"`
}

// ForecastDays returns the requested horizon, falling back to DefaultForecastDays.
func (r *StockRequest) ForecastDays() int {
	if r.Days == nil {
		return DefaultForecastDays
	}
	return *r.Days
}

// TrainResult acknowledges a completed training run.
type TrainResult struct {
	Message string `json:"message"`
}

// Forecast is the result of a rolling multi-day prediction.
type Forecast struct {
	Predicted []float64 `json:"predicted"`
	Dates     []string  `json:"dates"`
	Actual    []float64 `json:"actual"`
}
