package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"golang.org/x/time/rate"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port       string
	ServerID   string // room partition served by this instance
	ServerName string

	// Security
	AllowedOrigins []string

	// Rate Limiting
	RateLimitWS       rate.Limit // websocket upgrades per second per IP
	RateLimitWSBurst  int
	RateLimitMsg      rate.Limit // inbound frames per second per connection
	RateLimitMsgBurst int

	// Logging
	LogLevel  string
	LogFormat string

	// WebSocket
	MaxMessageSize int
	SendBufferSize int

	// World
	WorldWidth  int
	WorldHeight int

	// Event feed
	NATSURL           string
	NATSSubjectPrefix string
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:              "8080",
		ServerID:          domain.DefaultServerID,
		ServerName:        "wsC",
		AllowedOrigins:    []string{"*"},
		RateLimitWS:       domain.DefaultRateLimitWS,
		RateLimitWSBurst:  10,
		RateLimitMsg:      domain.DefaultRateLimitMsg,
		RateLimitMsgBurst: 100,
		LogLevel:          "info", // Options: debug, info, warn, error, silent
		LogFormat:         "console",
		MaxMessageSize:    domain.MaxMessageSize,
		SendBufferSize:    domain.SendBufferSize,
		WorldWidth:        domain.WorldWidth,
		WorldHeight:       domain.WorldHeight,
		NATSSubjectPrefix: "petlobby",
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	// Server
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if id := strings.TrimSpace(os.Getenv("SERVER_ID")); id != "" {
		cfg.ServerID = id
	}
	if name := strings.TrimSpace(os.Getenv("SERVER_NAME")); name != "" {
		cfg.ServerName = name
	}

	// Security
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	// Rate Limiting
	if val, ok := positiveInt("RATE_LIMIT_WS"); ok {
		cfg.RateLimitWS = rate.Limit(val)
	}
	if val, ok := positiveInt("RATE_LIMIT_WS_BURST"); ok {
		cfg.RateLimitWSBurst = val
	}
	if val, ok := positiveInt("RATE_LIMIT_MSG"); ok {
		cfg.RateLimitMsg = rate.Limit(val)
	}
	if val, ok := positiveInt("RATE_LIMIT_MSG_BURST"); ok {
		cfg.RateLimitMsgBurst = val
	}

	// Logging
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	// WebSocket
	if val, ok := positiveInt("MAX_MESSAGE_SIZE"); ok {
		cfg.MaxMessageSize = val
	}
	if val, ok := positiveInt("SEND_BUFFER_SIZE"); ok {
		cfg.SendBufferSize = val
	}

	// World
	if val, ok := positiveInt("WORLD_WIDTH"); ok {
		cfg.WorldWidth = val
	}
	if val, ok := positiveInt("WORLD_HEIGHT"); ok {
		cfg.WorldHeight = val
	}

	// Event feed
	if url := strings.TrimSpace(os.Getenv("NATS_URL")); url != "" {
		cfg.NATSURL = url
	}
	if prefix := strings.TrimSpace(os.Getenv("NATS_SUBJECT_PREFIX")); prefix != "" {
		cfg.NATSSubjectPrefix = prefix
	}

	return cfg
}

// positiveInt reads an integer env var, ignoring missing, malformed and
// non-positive values
func positiveInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return 0, false
	}
	return val, true
}

// parseOrigins parses comma-separated origins
func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// OriginAllowed reports whether a websocket Origin header passes the allow-list
func (c *Config) OriginAllowed(origin string) bool {
	// Empty origin is allowed (same-origin / non-browser clients)
	if origin == "" {
		return true
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}
