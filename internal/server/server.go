// Package server exposes the forecasting pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"StockForecaster/internal/logging"
	"StockForecaster/internal/model"
	"StockForecaster/internal/recorder"
)

const (
	logTailLines        = 100
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Forecaster is the pipeline behind /train and /predict.
type Forecaster interface {
	Train(ctx context.Context, symbol string) (*model.TrainResult, error)
	Predict(ctx context.Context, symbol string, days int) (*model.Forecast, error)
	Trained() bool
}

// Options configures the router.
type Options struct {
	LogFile     string
	CORSOrigins []string
	RateLimit   float64 // requests per second; 0 disables limiting
}

// Server holds the handler dependencies.
type Server struct {
	forecaster Forecaster
	recorder   recorder.Recorder
	opts       Options
	logger     *logrus.Logger
}

func New(f Forecaster, rec recorder.Recorder, opts Options, logger *logrus.Logger) *Server {
	if opts.LogFile == "" {
		opts.LogFile = logging.DefaultFile
	}
	return &Server{forecaster: f, recorder: rec, opts: opts, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogMiddleware(s.logger))
	r.Use(securityHeadersMiddleware())
	r.Use(corsMiddleware(s.opts.CORSOrigins))
	if s.opts.RateLimit > 0 {
		r.Use(rateLimitMiddleware(s.opts.RateLimit))
	}

	r.POST("/train", s.handleTrain)
	r.POST("/predict", s.handlePredict)
	r.GET("/logs", s.handleLogs)

	r.GET("/healthz", s.handleHealthz)
	r.GET("/history", s.handleHistory)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (s *Server) bindRequest(c *gin.Context) (*model.StockRequest, bool) {
	var req model.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return nil, false
	}
	return &req, true
}

func (s *Server) handleTrain(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	s.logger.Infof("Training requested for %s", req.Symbol)

	// Training outlives a disconnected client.
	res, err := s.forecaster.Train(context.WithoutCancel(c.Request.Context()), req.Symbol)
	if err != nil {
		logging.Exception(s.logger, err, "Training failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Training failed: " + err.Error()})
		return
	}
	s.logger.Infof("Training completed: %s", res.Message)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePredict(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	days := req.ForecastDays()
	if days <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "days must be a positive integer"})
		return
	}
	s.logger.Infof("Prediction request received for %s", req.Symbol)

	fc, err := s.forecaster.Predict(context.WithoutCancel(c.Request.Context()), req.Symbol, days)
	if err != nil {
		logging.Exception(s.logger, err, "Prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	s.logger.Info("Prediction successful")
	c.JSON(http.StatusOK, fc)
}

func (s *Server) handleLogs(c *gin.Context) {
	lines, err := logging.Tail(s.opts.LogFile, logTailLines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": lines})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"model_trained": s.forecaster.Trained(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	runs, err := s.recorder.Recent(limit)
	if err != nil {
		s.logger.WithError(err).Error("load run history")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
