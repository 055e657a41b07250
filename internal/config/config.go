package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string
	GeminiAPIKey string // when set, the Gemini API is used instead of Vertex AI

	StorageBackend       string // "memory" or "firestore"
	FirestoreCredentials string // optional service account key file
	UseMockLLM           bool   // true = use mock even on GCP

	CloseSummary            bool   // fold a model summary into the persona when a chat ends
	CorrelationExamplesPath string // JSON or YAML list of worked examples
	LogLevel                string
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return b, nil
}

// Load reads all env vars and builds the config
func Load() (*Config, error) {
	var mode Mode
	switch modeStr := getEnv("SOLACE_MODE", "local"); modeStr {
	case "gcp":
		mode = ModeGCP
	case "local":
		mode = ModeLocal
	default:
		return nil, fmt.Errorf("invalid SOLACE_MODE value %q", modeStr)
	}

	useMock, err := getBoolEnv("SOLACE_USE_MOCK_LLM", mode == ModeLocal)
	if err != nil {
		return nil, err
	}
	closeSummary, err := getBoolEnv("SOLACE_CLOSE_SUMMARY", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("SOLACE_PORT", "8080"),

		GCPProjectID: getEnv("SOLACE_GCP_PROJECT", ""),
		GCPLocation:  getEnv("SOLACE_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("SOLACE_MODEL_NAME", "gemini-2.5-flash"),
		GeminiAPIKey: getEnv("SOLACE_GEMINI_API_KEY", ""),

		StorageBackend:       getEnv("SOLACE_STORAGE_BACKEND", StorageMemory),
		FirestoreCredentials: getEnv("SOLACE_FIRESTORE_CREDENTIALS", ""),
		UseMockLLM:           useMock,

		CloseSummary:            closeSummary,
		CorrelationExamplesPath: getEnv("SOLACE_CORRELATION_EXAMPLES", ""),
		LogLevel:                getEnv("SOLACE_LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid SOLACE_PORT value %q", c.Port)
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("SOLACE_GCP_PROJECT is required for the firestore storage backend")
		}
	default:
		return fmt.Errorf("invalid SOLACE_STORAGE_BACKEND value %q", c.StorageBackend)
	}

	// Minimal validation in GCP mode
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return fmt.Errorf("SOLACE_GCP_PROJECT must be set in gcp mode")
	}
	if !c.UseMockLLM && c.GeminiAPIKey == "" && c.GCPProjectID == "" {
		return fmt.Errorf("SOLACE_GEMINI_API_KEY or SOLACE_GCP_PROJECT is required unless SOLACE_USE_MOCK_LLM is set")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
