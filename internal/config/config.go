package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"babytrack-go/pkg/logger"
)

type Config struct {
	HTTPPort    string
	Env         string
	AppBaseURL  string
	CORSOrigins []string
	DB          DBConfig
	Supabase    SupabaseConfig
	Access      AccessConfig
	Invitations InvitationsConfig
	Realtime    RealtimeConfig
	Email       EmailConfig
	Export      ExportConfig
	Session     SessionConfig
}

type DBConfig struct {
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SupabaseConfig struct {
	URL            string
	PublishableKey string
	JWTSecret      string
	AuthTimeout    time.Duration
	SkipAuth       bool
	MockUserID     string
	MockUserEmail  string
	MockUserName   string
	MockUserAvatar string
}

type AccessConfig struct {
	// RoleCacheTTL of zero disables role caching; every check hits the store.
	RoleCacheTTL time.Duration
}

type InvitationsConfig struct {
	TTL time.Duration
}

type RealtimeConfig struct {
	Source       string
	Channel      string
	BufferSize   int
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
}

type EmailConfig struct {
	Region    string
	FromEmail string
	FromName  string
}

type ExportConfig struct {
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	PresignTTL time.Duration
}

type SessionConfig struct {
	StorePath string
}

const (
	RealtimeSourcePostgres = "postgres"
	RealtimeSourceKafka    = "kafka"
	RealtimeSourceNone     = "none"
)

func Load(log logger.Logger) (Config, error) {
	err := loadDotEnv(log)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		AppBaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:5173"), "/"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		DB: DBConfig{
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "babytrack"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			PublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", getEnv("VITE_SUPABASE_PUBLISHABLE_KEY", "")),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
			AuthTimeout:    getEnvDuration("SUPABASE_AUTH_TIMEOUT", 5*time.Second),
			SkipAuth:       getEnvBool("AUTH_SKIP", false),
			MockUserID:     getEnv("AUTH_MOCK_USER_ID", "00000000-0000-0000-0000-000000000001"),
			MockUserEmail:  getEnv("AUTH_MOCK_USER_EMAIL", ""),
			MockUserName:   getEnv("AUTH_MOCK_USER_NAME", ""),
			MockUserAvatar: getEnv("AUTH_MOCK_USER_AVATAR_URL", ""),
		},
		Access: AccessConfig{
			RoleCacheTTL: getEnvDuration("ROLE_CACHE_TTL", 0),
		},
		Invitations: InvitationsConfig{
			TTL: getEnvDuration("INVITATION_TTL", 7*24*time.Hour),
		},
		Realtime: RealtimeConfig{
			Source:       strings.ToLower(getEnv("REALTIME_SOURCE", RealtimeSourcePostgres)),
			Channel:      getEnv("REALTIME_CHANNEL", "babytrack_changes"),
			BufferSize:   getEnvInt("REALTIME_BUFFER", 32),
			KafkaBrokers: getEnvList("KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "babytrack.changes"),
			KafkaGroupID: getEnv("KAFKA_GROUP_ID", ""),
		},
		Email: EmailConfig{
			Region:    getEnv("SES_REGION", "us-east-1"),
			FromEmail: getEnv("SES_FROM_EMAIL", ""),
			FromName:  getEnv("SES_FROM_NAME", "Baby Tracker"),
		},
		Export: ExportConfig{
			S3Bucket:   getEnv("EXPORT_S3_BUCKET", ""),
			S3Region:   getEnv("EXPORT_S3_REGION", "us-east-1"),
			S3Endpoint: getEnv("EXPORT_S3_ENDPOINT", ""),
			PresignTTL: getEnvDuration("EXPORT_PRESIGN_TTL", 15*time.Minute),
		},
		Session: SessionConfig{
			StorePath: getEnv("SESSION_STORE_PATH", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Realtime.Source {
	case RealtimeSourcePostgres, RealtimeSourceNone:
	case RealtimeSourceKafka:
		if len(c.Realtime.KafkaBrokers) == 0 {
			return fmt.Errorf("config: KAFKA_BROKERS is required when REALTIME_SOURCE=kafka")
		}
	default:
		return fmt.Errorf("config: unsupported REALTIME_SOURCE %q", c.Realtime.Source)
	}
	if c.Invitations.TTL <= 0 {
		return fmt.Errorf("config: INVITATION_TTL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
}
