package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"StockForecaster/internal/logging"
	"StockForecaster/internal/model"
	"StockForecaster/internal/recorder"
)

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Train(ctx context.Context, symbol string) (*model.TrainResult, error) {
	args := m.Called(ctx, symbol)
	res, _ := args.Get(0).(*model.TrainResult)
	return res, args.Error(1)
}

func (m *mockForecaster) Predict(ctx context.Context, symbol string, days int) (*model.Forecast, error) {
	args := m.Called(ctx, symbol, days)
	fc, _ := args.Get(0).(*model.Forecast)
	return fc, args.Error(1)
}

func (m *mockForecaster) Trained() bool {
	return m.Called().Bool(0)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestRouter(t *testing.T, f Forecaster, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.LogFile == "" {
		opts.LogFile = filepath.Join(t.TempDir(), "log.txt")
	}
	return New(f, recorder.NewNoopRecorder(), opts, quietLogger()).Router()
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTrainSuccess(t *testing.T) {
	f := &mockForecaster{}
	f.On("Train", mock.Anything, "AAPL").Return(&model.TrainResult{Message: "Model trained and saved as default."}, nil)
	r := newTestRouter(t, f, Options{})

	w := do(r, http.MethodPost, "/train", `{"symbol":"AAPL","days":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Model trained and saved as default.", decode(t, w)["message"])
	f.AssertExpectations(t)
}

func TestTrainIgnoresClientCancellation(t *testing.T) {
	f := &mockForecaster{}
	f.On("Train", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), "AAPL").
		Return(&model.TrainResult{Message: "ok"}, nil)
	r := newTestRouter(t, f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/train", strings.NewReader(`{"symbol":"AAPL"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.AssertExpectations(t)
}

func TestTrainFailure(t *testing.T) {
	f := &mockForecaster{}
	f.On("Train", mock.Anything, "ZZZZ").Return(nil, errors.New("could not fetch or process stock data: failed to fetch data for ZZZZ: no data found for ZZZZ"))
	r := newTestRouter(t, f, Options{})

	w := do(r, http.MethodPost, "/train", `{"symbol":"ZZZZ"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t,
		"Training failed: could not fetch or process stock data: failed to fetch data for ZZZZ: no data found for ZZZZ",
		decode(t, w)["detail"])
}

func TestPredictDefaultsToTenDays(t *testing.T) {
	f := &mockForecaster{}
	fc := &model.Forecast{Predicted: []float64{1.5}, Dates: []string{"2024-01-02"}, Actual: []float64{1.25}}
	f.On("Predict", mock.Anything, "MSFT", 10).Return(fc, nil)
	r := newTestRouter(t, f, Options{})

	w := do(r, http.MethodPost, "/predict", `{"symbol":"MSFT"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"predicted":[1.5],"dates":["2024-01-02"],"actual":[1.25]}`, w.Body.String())
	f.AssertExpectations(t)
}

func TestPredictFailure(t *testing.T) {
	f := &mockForecaster{}
	f.On("Predict", mock.Anything, "AAPL", 5).Return(nil, errors.New("could not fetch or process stock data: default model or scaler not found, please train the model first"))
	r := newTestRouter(t, f, Options{})

	w := do(r, http.MethodPost, "/predict", `{"symbol":"AAPL","days":5}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t,
		"could not fetch or process stock data: default model or scaler not found, please train the model first",
		decode(t, w)["detail"])
}

func TestRequestValidation(t *testing.T) {
	f := &mockForecaster{}
	r := newTestRouter(t, f, Options{})

	cases := []struct {
		name, path, body string
	}{
		{"missing symbol", "/predict", `{"days":3}`},
		{"malformed json", "/train", `{"symbol":`},
		{"days not a number", "/predict", `{"symbol":"AAPL","days":"soon"}`},
		{"zero days", "/predict", `{"symbol":"AAPL","days":0}`},
		{"negative days", "/predict", `{"symbol":"AAPL","days":-2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.NotEmpty(t, decode(t, w)["detail"])
		})
	}
	f.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	f.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogsMissingFile(t *testing.T) {
	r := newTestRouter(t, &mockForecaster{}, Options{})

	w := do(r, http.MethodGet, "/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"logs":[]}`, w.Body.String())
}

func TestLogsReturnsRequestLines(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "log.txt")
	logger, closer, err := logging.New(path, "info")
	require.NoError(t, err)
	defer closer.Close()

	f := &mockForecaster{}
	f.On("Train", mock.Anything, "AAPL").Return(&model.TrainResult{Message: "done"}, nil)
	r := New(f, recorder.NewNoopRecorder(), Options{LogFile: path}, logger).Router()

	do(r, http.MethodPost, "/train", `{"symbol":"AAPL"}`)
	w := do(r, http.MethodGet, "/logs", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Logs []string `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Logs, 2)
	assert.True(t, strings.HasSuffix(body.Logs[0], " - INFO - Training requested for AAPL\n"))
	assert.True(t, strings.HasSuffix(body.Logs[1], " - INFO - Training completed: done\n"))
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, &mockForecaster{}, Options{CORSOrigins: []string{"*"}})

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSRestrictedOrigin(t *testing.T) {
	f := &mockForecaster{}
	f.On("Trained").Return(true)
	r := newTestRouter(t, f, Options{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	f := &mockForecaster{}
	f.On("Trained").Return(false)
	r := newTestRouter(t, f, Options{RateLimit: 1})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/healthz", "").Code)
}

func TestHealthzAndHistory(t *testing.T) {
	f := &mockForecaster{}
	f.On("Trained").Return(true)
	r := newTestRouter(t, f, Options{})

	w := do(r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","model_trained":true}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = do(r, http.MethodGet, "/history?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())

	w = do(r, http.MethodGet, "/history?limit=zero", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, &mockForecaster{}, Options{})
	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
