package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

// Artifact is the persisted form of a trained model: the standardizer, the
// linear classifier and the feature layout they were fitted on.
type Artifact struct {
	Convention   string             `json:"convention,omitempty"`
	FeatureNames []string           `json:"feature_names,omitempty"`
	Scaler       Scaler             `json:"scaler"`
	Model        Classifier         `json:"model"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	TrainedAt    *time.Time         `json:"trained_at,omitempty"`
}

// ReadArtifact decodes an artifact from path.
func ReadArtifact(path string) (*Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to open model artifact %s", path), err)
	}
	defer file.Close()

	var a Artifact
	if err := json.NewDecoder(file).Decode(&a); err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to decode model artifact %s", path), err)
	}
	return &a, nil
}

// WriteArtifact stores a as indented JSON, creating parent directories.
func WriteArtifact(path string, a *Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model artifact: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}
	return nil
}
