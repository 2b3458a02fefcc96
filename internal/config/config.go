package config

import (
	"github.com/spf13/viper"
)

// Both binaries read the same config type; each picks the knobs it needs.
// Everything is an environment variable so the services run unchanged in
// docker-compose and in the cluster.

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	BoardPort  string `mapstructure:"BOARD_PORT"`
	LocalDev   bool   `mapstructure:"LOCAL_DEV"`

	RedisURL                   string `mapstructure:"REDIS_URL"`
	DedupeProcessingTTLSeconds int    `mapstructure:"DEDUPE_PROCESSING_TTL_SECONDS"`
	DedupeCompletedTTLSeconds  int    `mapstructure:"DEDUPE_COMPLETED_TTL_SECONDS"`
	// DedupeFailOpen decides what a webhook does when Redis is unreachable
	// at admit time: process anyway with a warning (true) or reject with a
	// 503 (false). Either way the choice is logged loudly.
	DedupeFailOpen bool `mapstructure:"DEDUPE_FAIL_OPEN"`

	BreakEndWindowSeconds int `mapstructure:"BREAK_END_WINDOW_SECONDS"`
	DispatchConcurrency   int `mapstructure:"DISPATCH_CONCURRENCY"`

	DirectoryFile string `mapstructure:"DIRECTORY_FILE"`

	PresenceAPIURL string `mapstructure:"PRESENCE_API_URL"`
	ShiftFeedURL   string `mapstructure:"SHIFT_FEED_URL"`

	BoardURL            string `mapstructure:"BOARD_URL"`
	BoardInternalSecret string `mapstructure:"BOARD_INTERNAL_SECRET"`
	// BoardAPITokens is a comma-separated list of accepted bearer tokens.
	// Empty means the board mints one at startup and logs it.
	BoardAPITokens string `mapstructure:"BOARD_API_TOKENS"`

	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BOARD_PORT", "8081")
	viper.SetDefault("LOCAL_DEV", false)
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("DEDUPE_PROCESSING_TTL_SECONDS", 30)
	viper.SetDefault("DEDUPE_COMPLETED_TTL_SECONDS", 3600)
	viper.SetDefault("DEDUPE_FAIL_OPEN", true)
	viper.SetDefault("BREAK_END_WINDOW_SECONDS", 180)
	viper.SetDefault("DISPATCH_CONCURRENCY", 10)
	viper.SetDefault("DIRECTORY_FILE", "./directory.json")
	viper.SetDefault("PRESENCE_API_URL", "http://localhost:8082")
	viper.SetDefault("SHIFT_FEED_URL", "http://localhost:8082")
	viper.SetDefault("BOARD_URL", "http://localhost:8081")
	viper.SetDefault("BOARD_INTERNAL_SECRET", "dev-internal-secret")
	viper.SetDefault("BOARD_API_TOKENS", "")
	viper.SetDefault("OTLP_ENDPOINT", "jaeger:4317")

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}
