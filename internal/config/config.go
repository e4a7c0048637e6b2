package config

import (
	"os"
	"strconv"
	"strings"

	"ebook-reader/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort       string
	DataPath         string
	ImportPath       string
	LogLevel         string
	MaxFileSize      int64
	SearchMatchLimit int
	SearchWorkers    int
	AllowedOrigins   []string
	GCPProjectID     string
	GCPLocation      string
	AIModel          string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:       getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		DataPath:         getEnvOrDefault("DATA_PATH", "./data"),
		ImportPath:       getEnvOrDefault("IMPORT_PATH", ""),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		MaxFileSize:      getEnvInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MB default
		SearchMatchLimit: getEnvIntOrDefault("SEARCH_MATCH_LIMIT", 500),
		SearchWorkers:    getEnvIntOrDefault("SEARCH_WORKERS", 4),
		AllowedOrigins: getEnvSliceOrDefault("ALLOWED_ORIGINS", []string{
			"http://localhost:5173", // SvelteKit dev server
			"http://localhost:4173", // SvelteKit preview
			"http://localhost:3000", // Alternative dev port
		}),
		GCPProjectID: getEnvOrDefault("GCP_PROJECT_ID", ""),
		GCPLocation:  getEnvOrDefault("GCP_LOCATION", "us-central1"),
		// AI_MODEL overrides the model stored in settings when set.
		AIModel: getEnvOrDefault("AI_MODEL", ""),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetDataPath returns the directory where books and user data live
func (c *AppConfig) GetDataPath() string {
	return c.DataPath
}

// GetImportPath returns the watched import directory, empty when disabled
func (c *AppConfig) GetImportPath() string {
	return c.ImportPath
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetSearchMatchLimit returns the cap on matches per corpus scan
func (c *AppConfig) GetSearchMatchLimit() int {
	return c.SearchMatchLimit
}

// GetSearchWorkers returns the number of concurrent scan workers
func (c *AppConfig) GetSearchWorkers() int {
	return c.SearchWorkers
}

// GetAllowedOrigins returns the CORS origin allowlist
func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetGCPProjectID returns the Google Cloud project for Vertex AI
func (c *AppConfig) GetGCPProjectID() string {
	return c.GCPProjectID
}

// GetGCPLocation returns the Vertex AI region
func (c *AppConfig) GetGCPLocation() string {
	return c.GCPLocation
}

// GetAIModel returns the model override, empty when settings decide
func (c *AppConfig) GetAIModel() string {
	return c.AIModel
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
