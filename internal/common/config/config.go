// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	GenAI     GenAIConfig     `mapstructure:"genai"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Narrative NarrativeConfig `mapstructure:"narrative"`
	Chat      ChatConfig      `mapstructure:"chat"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`    // milliseconds
	WriteTimeout   int `mapstructure:"write_timeout"`   // milliseconds
	IdleTimeout    int `mapstructure:"idle_timeout"`    // milliseconds
	ShutdownPeriod int `mapstructure:"shutdown_period"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GenAIConfig holds settings for the hosted text-generation service.
type GenAIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// PipelineConfig holds the fan-out and deadline settings for per-request
// enrichment.
type PipelineConfig struct {
	Concurrency         int     `mapstructure:"concurrency"`
	RequestTimeout      int     `mapstructure:"request_timeout"` // milliseconds
	LookupTimeout       int     `mapstructure:"lookup_timeout"`  // milliseconds
	ChurnAlertThreshold float64 `mapstructure:"churn_alert_threshold"`
}

// NarrativeConfig holds token budgets and cache settings for generated text.
type NarrativeConfig struct {
	ExplainMaxTokens    int     `mapstructure:"explain_max_tokens"`
	NextActionMaxTokens int     `mapstructure:"next_action_max_tokens"`
	PitchMaxTokens      int     `mapstructure:"pitch_max_tokens"`
	Temperature         float64 `mapstructure:"temperature"`
	CacheTTL            int     `mapstructure:"cache_ttl"` // seconds
}

// ChatConfig holds intent-classification settings.
type ChatConfig struct {
	MaxHistoryTurns   int `mapstructure:"max_history_turns"`
	ClassifyMaxTokens int `mapstructure:"classify_max_tokens"`
}

// AWSConfig holds settings for outbound pitch email and churn alerts.
type AWSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Region        string `mapstructure:"region"`
	PitchSender   string `mapstructure:"pitch_sender"`
	ChurnTopicARN string `mapstructure:"churn_topic_arn"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
