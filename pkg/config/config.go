package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bee-finder/pkg/apperr"
)

const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"

	StorageGCS    = "gcs"
	StorageMinIO  = "minio"
	StorageMemory = "memory"

	ProviderZippopotam = "zippopotam"
	ProviderGoogleMaps = "googlemaps"
)

type Config struct {
	Port      string         `yaml:"port"`
	LogLevel  string         `yaml:"logLevel"`
	LogFormat string         `yaml:"logFormat"`
	GenAI     GenAIConfig    `yaml:"genai"`
	Storage   StorageConfig  `yaml:"storage"`
	History   HistoryConfig  `yaml:"history"`
	Location  LocationConfig `yaml:"location"`
	Weather   WeatherConfig  `yaml:"weather"`
}

type GenAIConfig struct {
	Backend               string `yaml:"backend"`
	APIKey                string `yaml:"apiKey"`
	ProjectID             string `yaml:"projectId"`
	Location              string `yaml:"location"`
	ImageModel            string `yaml:"imageModel"`
	TextModel             string `yaml:"textModel"`
	VideoModel            string `yaml:"videoModel"`
	VideoFallbackModel    string `yaml:"videoFallbackModel"`
	ImageResponseMIMEType string `yaml:"imageResponseMimeType"`
}

type StorageConfig struct {
	Backend    string      `yaml:"backend"`
	BucketName string      `yaml:"bucket"`
	MinIO      MinIOConfig `yaml:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
}

// HistoryConfig controls the Firestore generation log.
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ProjectID  string `yaml:"projectId"`
	DatabaseID string `yaml:"databaseId"`
}

type LocationConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"baseUrl"`
	GoogleMapsKey     string        `yaml:"googleMapsKey"`
	ValkeyAddr        string        `yaml:"valkeyAddr"`
	CacheTTL          time.Duration `yaml:"cacheTtl"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

type WeatherConfig struct {
	BaseURL           string  `yaml:"baseUrl"`
	UserAgent         string  `yaml:"userAgent"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

// Load reads .env files, an optional YAML file and environment variables, validating required fields.
func Load() (*Config, error) {
	// Try loading .env files from various locations (root, parent, etc)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../../.env")

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "text",
		GenAI: GenAIConfig{
			Backend:            BackendGemini,
			Location:           "us-central1",
			ImageModel:         "gemini-2.5-flash-image",
			TextModel:          "gemini-2.5-flash",
			VideoModel:         "veo-3.1-fast-generate-preview",
			VideoFallbackModel: "veo-2.0-generate-001",
		},
		Storage: StorageConfig{
			Backend: StorageGCS,
		},
		History: HistoryConfig{
			DatabaseID: "(default)",
		},
		Location: LocationConfig{
			Provider:          ProviderZippopotam,
			BaseURL:           "https://api.zippopotam.us",
			CacheTTL:          24 * time.Hour,
			RequestsPerSecond: 5,
		},
		Weather: WeatherConfig{
			BaseURL:           "https://api.weather.gov",
			UserAgent:         "bee-finder (github.com/bee-finder)",
			RequestsPerSecond: 5,
		},
	}
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")

	setString(&cfg.GenAI.Backend, "GENAI_BACKEND")
	setString(&cfg.GenAI.APIKey, "GEMINI_API_KEY")
	setString(&cfg.GenAI.ProjectID, "PROJECT_ID")
	setString(&cfg.GenAI.ProjectID, "GOOGLE_CLOUD_PROJECT")
	setString(&cfg.GenAI.Location, "GOOGLE_CLOUD_LOCATION")
	setString(&cfg.GenAI.ImageModel, "IMAGE_MODEL")
	setString(&cfg.GenAI.TextModel, "TEXT_MODEL")
	setString(&cfg.GenAI.VideoModel, "VIDEO_MODEL")
	setString(&cfg.GenAI.VideoFallbackModel, "VIDEO_FALLBACK_MODEL")
	setString(&cfg.GenAI.ImageResponseMIMEType, "IMAGE_RESPONSE_MIME_TYPE")

	setString(&cfg.Storage.Backend, "STORAGE_BACKEND")
	setString(&cfg.Storage.BucketName, "GENMEDIA_BUCKET")
	setString(&cfg.Storage.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.Storage.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Storage.MinIO.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Storage.MinIO.Region, "MINIO_REGION")

	if v := os.Getenv("HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	setString(&cfg.History.DatabaseID, "FIRESTORE_DATABASE")
	if cfg.History.ProjectID == "" {
		cfg.History.ProjectID = cfg.GenAI.ProjectID
	}

	setString(&cfg.Location.Provider, "LOCATION_PROVIDER")
	setString(&cfg.Location.BaseURL, "GEOCODING_BASE_URL")
	setString(&cfg.Location.GoogleMapsKey, "GOOGLE_MAPS_API_KEY")
	setString(&cfg.Location.ValkeyAddr, "VALKEY_ADDR")
	if v := os.Getenv("LOCATION_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Location.CacheTTL = parsed
		}
	}

	setString(&cfg.Weather.BaseURL, "WEATHER_BASE_URL")
	setString(&cfg.Weather.UserAgent, "WEATHER_USER_AGENT")

	if v := os.Getenv("OUTBOUND_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Location.RequestsPerSecond = parsed
			cfg.Weather.RequestsPerSecond = parsed
		}
	}
}

// Validate reports the first missing or inconsistent setting as an internal configuration error.
func (c *Config) Validate() error {
	switch c.GenAI.Backend {
	case BackendGemini:
		if c.GenAI.APIKey == "" {
			return configError("Gemini API Key is missing (GEMINI_API_KEY).")
		}
	case BackendVertex:
		if c.GenAI.ProjectID == "" {
			return configError("GOOGLE_CLOUD_PROJECT or PROJECT_ID is required for the vertex backend.")
		}
	default:
		return configError(fmt.Sprintf("unknown GENAI_BACKEND %q.", c.GenAI.Backend))
	}

	switch c.Storage.Backend {
	case StorageGCS:
		if c.Storage.BucketName == "" {
			return configError("GENMEDIA_BUCKET is required.")
		}
	case StorageMinIO:
		m := c.Storage.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || c.Storage.BucketName == "" {
			return configError("MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and GENMEDIA_BUCKET are required for minio storage.")
		}
	case StorageMemory:
	default:
		return configError(fmt.Sprintf("unknown STORAGE_BACKEND %q.", c.Storage.Backend))
	}

	switch c.Location.Provider {
	case ProviderZippopotam:
	case ProviderGoogleMaps:
		if c.Location.GoogleMapsKey == "" {
			return configError("GOOGLE_MAPS_API_KEY is required for the googlemaps provider.")
		}
	default:
		return configError(fmt.Sprintf("unknown LOCATION_PROVIDER %q.", c.Location.Provider))
	}

	if c.History.Enabled && c.History.ProjectID == "" {
		return configError("GOOGLE_CLOUD_PROJECT or PROJECT_ID is required when HISTORY_ENABLED is set.")
	}
	return nil
}

func configError(msg string) error {
	return apperr.New(apperr.Internal, "Server configuration error: "+msg)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
