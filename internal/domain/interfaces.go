package domain

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the runtime configuration surface consumed by services.
type Config interface {
	GetServerPort() string
	GetDataPath() string
	GetImportPath() string
	GetLogLevel() string
	GetMaxFileSize() int64
	GetSearchMatchLimit() int
	GetSearchWorkers() int
	GetAllowedOrigins() []string
	GetGCPProjectID() string
	GetGCPLocation() string
	GetAIModel() string
}
