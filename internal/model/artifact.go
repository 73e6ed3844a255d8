package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainharvest/internal/features"
	"github.com/golang/snappy"
)

// FormatVersion is bumped whenever the artifact layout changes incompatibly.
const FormatVersion = 1

// ErrArtifactNotFound is returned by Load when the file does not exist.
var ErrArtifactNotFound = errors.New("model artifact not found")

// Artifact bundles a fitted estimator with the preprocessing it was trained
// behind, so a prediction never sees a differently encoded input.
type Artifact struct {
	Kind      string                  `json:"kind"`
	Version   int                     `json:"version"`
	TrainedAt time.Time               `json:"trained_at"`
	Encoder   *features.ColumnEncoder `json:"encoder"`
	Model     json.RawMessage         `json:"model"`
	Metrics   Metrics                 `json:"metrics"`
}

// Save writes a snappy-compressed JSON artifact. The file is replaced
// atomically.
func Save(path string, a Artifact) error {
	if a.Kind == "" {
		return errors.New("save artifact: empty kind")
	}
	a.Version = FormatVersion

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(snappy.Encode(nil, data)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads an artifact written by Save.
func Load(path string) (Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Artifact{}, fmt.Errorf("%w: %s: %w", ErrArtifactNotFound, path, err)
		}
		return Artifact{}, fmt.Errorf("read artifact: %w", err)
	}
	data, err := snappy.Decode(nil, raw)
	if err != nil {
		return Artifact{}, fmt.Errorf("decompress artifact %s: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if a.Version != FormatVersion {
		return Artifact{}, fmt.Errorf("artifact %s: unsupported format version %d", path, a.Version)
	}
	if a.Kind == "" || a.Encoder == nil || len(a.Model) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s: incomplete", path)
	}
	return a, nil
}
