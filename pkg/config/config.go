package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port       string `mapstructure:"port"`
	AdminEmail string `mapstructure:"admin_email"`
	JWTSecret  string `mapstructure:"jwt_secret"`

	MongoSQL DatabaseConfig `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
	// Addr 單機模式, 空值時走 sentinel
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition attachment object storage
type MinIOConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition message event stream, empty brokers disable it
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// SyncConfig timings of the conversation signalers
type SyncConfig struct {
	TypingQuietPeriod time.Duration `mapstructure:"typing_quiet_period"`
	PresenceWindow    time.Duration `mapstructure:"presence_window"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ReactionRetries   uint64        `mapstructure:"reaction_retries"`
	InboxLimit        int64         `mapstructure:"inbox_limit"`
}

// Default values used when the yaml leaves a field empty
const (
	DefaultTypingQuietPeriod = 2 * time.Second
	DefaultPresenceWindow    = 2 * time.Minute
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultReactionRetries   = 5
	DefaultInboxLimit        = 100
	DefaultKafkaTopic        = "chat.messages"
)

// WithDefaults fill zero values of the sync timings
func (s SyncConfig) WithDefaults() SyncConfig {
	if s.TypingQuietPeriod <= 0 {
		s.TypingQuietPeriod = DefaultTypingQuietPeriod
	}
	if s.PresenceWindow <= 0 {
		s.PresenceWindow = DefaultPresenceWindow
	}
	if s.HeartbeatInterval <= 0 {
		s.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if s.ReactionRetries == 0 {
		s.ReactionRetries = DefaultReactionRetries
	}
	if s.InboxLimit <= 0 {
		s.InboxLimit = DefaultInboxLimit
	}
	return s
}
