package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"   validate:"required"`
	Revocation RevocationConfig `mapstructure:"revocation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// RealtimeConfig tunes the WebSocket broadcast channel.
type RealtimeConfig struct {
	// WriteTimeout bounds every outbound frame write to a single peer.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	// PongTimeout is how long a connection may stay silent before it is
	// considered dead. PingInterval must be shorter.
	PongTimeout  time.Duration `mapstructure:"pong_timeout"  validate:"gt=0"`
	PingInterval time.Duration `mapstructure:"ping_interval" validate:"gt=0,ltfield=PongTimeout"`
	// MaxFrameBytes is the transport read limit; larger frames end the connection.
	// It is raised as needed so any message within MaxMessageLength fits.
	MaxFrameBytes int64 `mapstructure:"max_frame_bytes" validate:"gt=0"`
	// MaxMessageLength is the longest chat message body accepted, in characters.
	MaxMessageLength int `mapstructure:"max_message_length" validate:"gt=0"`
	// QueueSize is the capacity of the broadcaster's request queue.
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`
	// AllowedOrigins restricts the Origin header on upgrade. Empty allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RevocationConfig controls retention of revoked tokens.
type RevocationConfig struct {
	// PurgeInterval is how often expired revocations are removed. Zero disables purging.
	PurgeInterval time.Duration `mapstructure:"purge_interval"  validate:"gte=0"`
	// RetentionGrace keeps a revocation this long past its token's expiry.
	// Values below the token clock skew are raised to it.
	RetentionGrace time.Duration `mapstructure:"retention_grace" validate:"gte=0"`
}
