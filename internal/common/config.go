package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Raster   RasterConfig
	Detector DetectorConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the SQLite store configuration
type DatabaseConfig struct {
	Path string
}

// RasterConfig holds PDF rasterization configuration
type RasterConfig struct {
	Pdftoppm string
	DPI      int
	MaxPages int
}

// DetectorConfig holds the table-detection capability configuration.
// ConfThreshold/IoUThreshold are passed through to the model; TableConfThreshold
// and TableClassID decide which detections qualify as tables. The two
// confidence knobs are intentionally independent.
type DetectorConfig struct {
	BaseURL            string
	ConfThreshold      float64
	IoUThreshold       float64
	TableClassID       int
	TableConfThreshold float64
	Timeout            time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	PromptPath  string
	MaxRetries  int
}

// PipelineConfig holds orchestration configuration
type PipelineConfig struct {
	InputDir    string
	WorkDir     string
	MaxInflight int
	KeepSources bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/tariffs.db"),
		},
		Raster: RasterConfig{
			Pdftoppm: getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:      getEnvAsInt("RASTER_DPI", 300),
			MaxPages: getEnvAsInt("RASTER_MAX_PAGES", 0),
		},
		Detector: DetectorConfig{
			BaseURL:            getEnv("DETECTOR_URL", "http://localhost:9090"),
			ConfThreshold:      getEnvAsFloat64("DETECTOR_CONF_THRS", 0.25),
			IoUThreshold:       getEnvAsFloat64("DETECTOR_IOU_THRS", 0.45),
			TableClassID:       getEnvAsInt("DETECTOR_TABLE_CLASS_ID", 3),
			TableConfThreshold: getEnvAsFloat64("DETECTOR_TABLE_CONF_THRS", 0.20),
			Timeout:            getEnvAsDuration("DETECTOR_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			PromptPath:  getEnv("PROMPT_PATH", "./assets/table_prompt.txt"),
			MaxRetries:  getEnvAsInt("OPENAI_MAX_RETRIES", 3),
		},
		Pipeline: PipelineConfig{
			InputDir:    getEnv("INPUT_DIR", "./data/documents"),
			WorkDir:     getEnv("WORK_DIR", "./tmp"),
			MaxInflight: getEnvAsInt("PIPELINE_MAX_INFLIGHT", 1),
			KeepSources: getEnvAsBool("PIPELINE_KEEP_SOURCES", false),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
