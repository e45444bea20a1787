package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"StockForecaster/internal/dataset"
	"StockForecaster/internal/lstm"
)

// Default single-slot locations of the trained model and its scaler.
const (
	DefaultModelPath  = "models/default_model.json.gz"
	DefaultScalerPath = "scalers/default_scaler.gz"
)

// ErrNotFound is returned by Load when either artifact is missing.
var ErrNotFound = errors.New("default model or scaler not found")

// Store reads and writes the model/scaler pair at fixed paths.
//
// The two files are written independently: concurrent Save calls, or a Save
// racing a Load, can leave a model from one fit next to a scaler from another.
// Each file is replaced by rename, so neither is ever observed half-written.
type Store struct {
	ModelPath  string
	ScalerPath string
}

// NewStore returns a Store, substituting the default path for any empty argument.
func NewStore(modelPath, scalerPath string) *Store {
	if modelPath == "" {
		modelPath = DefaultModelPath
	}
	if scalerPath == "" {
		scalerPath = DefaultScalerPath
	}
	return &Store{ModelPath: modelPath, ScalerPath: scalerPath}
}

type modelFile struct {
	SavedAt time.Time     `json:"saved_at"`
	Network lstm.Snapshot `json:"network"`
}

type scalerFile struct {
	SavedAt time.Time      `json:"saved_at"`
	Scaler  dataset.Scaler `json:"scaler"`
}

// Exists reports whether both artifacts are present.
func (s *Store) Exists() bool {
	return fileExists(s.ModelPath) && fileExists(s.ScalerPath)
}

// Save overwrites both artifacts unconditionally.
func (s *Store) Save(net *lstm.Network, scaler dataset.Scaler) error {
	now := time.Now()
	if err := writeGzipJSON(s.ModelPath, modelFile{SavedAt: now, Network: net.Snapshot()}); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := writeGzipJSON(s.ScalerPath, scalerFile{SavedAt: now, Scaler: scaler}); err != nil {
		return fmt.Errorf("save scaler: %w", err)
	}
	return nil
}

// Load reads both artifacts. It returns ErrNotFound if either file is absent.
func (s *Store) Load() (*lstm.Network, dataset.Scaler, error) {
	if !s.Exists() {
		return nil, dataset.Scaler{}, ErrNotFound
	}

	var mf modelFile
	if err := readGzipJSON(s.ModelPath, &mf); err != nil {
		return nil, dataset.Scaler{}, fmt.Errorf("load model: %w", err)
	}
	net, err := lstm.FromSnapshot(mf.Network)
	if err != nil {
		return nil, dataset.Scaler{}, fmt.Errorf("load model: %w", err)
	}

	var sf scalerFile
	if err := readGzipJSON(s.ScalerPath, &sf); err != nil {
		return nil, dataset.Scaler{}, fmt.Errorf("load scaler: %w", err)
	}
	return net, sf.Scaler, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeGzipJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readGzipJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()
	return json.NewDecoder(zr).Decode(v)
}
