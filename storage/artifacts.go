package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fukuyama-landprice/ml"
	"fukuyama-landprice/models"
)

// ErrArtifactMissing is returned when a persisted artifact file does not exist.
var ErrArtifactMissing = errors.New("artifact missing")

// Artifact file names.
const (
	ModelFile            = "model.json"
	ScalerFile           = "scaler.json"
	ModelInfoFile        = "model_info.json"
	DistrictEncoderFile  = "district_encoder.json"
	TypeEncoderFile      = "type_encoder.json"
	AgeBucketEncoderFile = "age_bucket_encoder.json"
)

// ArtifactStore reads and writes the JSON artifacts produced by training.
// Model, scaler and metadata live under ArtifactDir; category encoders live
// under EncoderDir.
type ArtifactStore struct {
	ArtifactDir string
	EncoderDir  string
}

func NewArtifactStore(artifactDir, encoderDir string) *ArtifactStore {
	return &ArtifactStore{ArtifactDir: artifactDir, EncoderDir: encoderDir}
}

func (s *ArtifactStore) artifactPath(name string) string {
	return filepath.Join(s.ArtifactDir, name)
}

func (s *ArtifactStore) encoderPath(name string) string {
	return filepath.Join(s.EncoderDir, name)
}

// SaveModel persists a fitted regressor with its kind.
func (s *ArtifactStore) SaveModel(m ml.Regressor) error {
	data, err := ml.MarshalModel(m)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.artifactPath(ModelFile), data)
}

// LoadModel reads the persisted regressor.
func (s *ArtifactStore) LoadModel() (ml.Regressor, error) {
	data, err := readArtifact(s.artifactPath(ModelFile))
	if err != nil {
		return nil, err
	}
	return ml.UnmarshalModel(data)
}

func (s *ArtifactStore) SaveScaler(sc *ml.StandardScaler) error {
	return writeJSON(s.artifactPath(ScalerFile), sc)
}

func (s *ArtifactStore) LoadScaler() (*ml.StandardScaler, error) {
	var sc ml.StandardScaler
	if err := readJSON(s.artifactPath(ScalerFile), &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *ArtifactStore) SaveInfo(info models.ModelInfo) error {
	return writeJSON(s.artifactPath(ModelInfoFile), info)
}

func (s *ArtifactStore) LoadInfo() (models.ModelInfo, error) {
	var info models.ModelInfo
	err := readJSON(s.artifactPath(ModelInfoFile), &info)
	return info, err
}

// SaveEncoder writes one category encoder under EncoderDir.
func (s *ArtifactStore) SaveEncoder(name string, enc json.Marshaler) error {
	return writeJSON(s.encoderPath(name), enc)
}

// LoadEncoder decodes one category encoder from EncoderDir into enc.
func (s *ArtifactStore) LoadEncoder(name string, enc json.Unmarshaler) error {
	return readJSON(s.encoderPath(name), enc)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data)
}

func readJSON(path string, v any) error {
	data, err := readArtifact(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artifact: decode %s: %w", path, err)
	}
	return nil
}

func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", path, err)
	}
	return data, nil
}

// writeFileAtomic writes through a temp file so readers never observe a
// partially written artifact.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("artifact: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("artifact: create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("artifact: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("artifact: rename %s: %w", path, err)
	}
	return nil
}
