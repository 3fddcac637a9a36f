// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Dialogue DialogueConfig `mapstructure:"dialogue"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the inbound webhook host settings.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`    // milliseconds
	WriteTimeout   int `mapstructure:"write_timeout"`   // milliseconds
	MaxMessageSize int `mapstructure:"max_message_size"` // bytes
}

// DialogueConfig holds the policy/session options recognized by the engine.
type DialogueConfig struct {
	SessionIdleTimeout  int     `mapstructure:"session_idle_timeout"` // milliseconds
	CarryOverSlots      bool    `mapstructure:"carry_over_slots"`
	MinIntentConfidence float64 `mapstructure:"min_intent_confidence"`
	MaxPendingTurns     int     `mapstructure:"max_pending_turns"`
	TemplateSelection   string  `mapstructure:"template_selection"` // "first" or "random"
	SweepInterval       int     `mapstructure:"sweep_interval"`     // milliseconds
}

// BackendConfig holds settings for the risk-analysis backend the dispatcher
// invokes business capabilities against.
type BackendConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"`     // milliseconds
	MaxRetries int    `mapstructure:"max_retries"` // idempotent calls only
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the optional session-snapshot store settings. When the
// address is empty the engine keeps snapshots in memory.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
