package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attend/internal/constants"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Vision      VisionConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Recognition RecognitionConfig
	Models      ModelsConfig
}

type VisionConfig struct {
	DetectorURL string // face detection model service (e.g. http://localhost:8008)
	EmbedderURL string // face embedding model service, defaults to DetectorURL
	Model       string // embedding model identifier, defaults to Facenet512
}

type StoreConfig struct {
	DataDir string // directory for the snapshot + metadata files (default "data")
}

type DatabaseConfig struct {
	URL          string // optional PostgreSQL connection URL (enables the pgvector store)
	MaxOpenConns int    // maximum open connections (default 25)
	MaxIdleConns int    // maximum idle connections (default 5)
}

type RecognitionConfig struct {
	Threshold float64 // default fusion threshold for matching
}

type ModelsConfig struct {
	Models map[string]ModelProfile `yaml:"models"`
}

// ModelProfile describes a known embedding model.
type ModelProfile struct {
	Dimension int `yaml:"dimension"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1).
// Returns the default value if the env var is unset, empty, or out of range.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < 1 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	detectorURL := os.Getenv("DETECTOR_URL")
	embedderURL := os.Getenv("EMBEDDER_URL")
	if embedderURL == "" {
		embedderURL = detectorURL
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "Facenet512"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	return &Config{
		Vision: VisionConfig{
			DetectorURL: detectorURL,
			EmbedderURL: embedderURL,
			Model:       model,
		},
		Store: StoreConfig{
			DataDir: dataDir,
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Recognition: RecognitionConfig{
			Threshold: envFloat("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
		},
		Models: models,
	}
}

// ModelProfile returns the profile for the configured embedding model.
// Unknown models return a zero profile (dimension 0 = unvalidated).
func (c *Config) ModelProfile() ModelProfile {
	return c.Models.Models[c.Vision.Model]
}

// SnapshotPath returns the path of the binary identity snapshot file.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Store.DataDir, "face_encodings.gob")
}

// MetadataPath returns the path of the human-readable metadata summary.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Store.DataDir, "student_metadata.json")
}
