package config

import (
	"fmt"
	"strings"
	"time"

	"boardroom/models"
	"boardroom/utils"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Address  string `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Channel  string `env:"REDIS_ROOM_CHANNEL" envDefault:"boardroom:rooms"`
}

type SMTPConfig struct {
	Host      string `env:"SMTP_HOST"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	FromEmail string `env:"FROM_EMAIL" envDefault:"no-reply@boardroom.local"`
	FromName  string `env:"FROM_NAME" envDefault:"Boardroom"`
}

type Config struct {
	Environment   string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort    string `env:"SERVER_PORT" envDefault:"5000"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	DBHost         string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort         string        `env:"DB_PORT" envDefault:"5432"`
	DBUser         string        `env:"DB_USER" envDefault:"postgres"`
	DBPassword     string        `env:"DB_PASSWORD"`
	DBName         string        `env:"DB_NAME" envDefault:"boardroom"`
	DBSSLMode      string        `env:"DB_SSL_MODE" envDefault:"disable"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	DBTimeout      time.Duration `env:"DB_TIMEOUT" envDefault:"10s"`

	JWTSecret             string        `env:"JWT_SECRET"`
	JWTIssuer             string        `env:"JWT_ISSUER"`
	IdentityTimeout       time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"5s"`
	IdentityWebhookSecret string        `env:"IDENTITY_WEBHOOK_SECRET"`

	Redis              RedisConfig
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	SMTP             SMTPConfig
	SummaryQueueSize int `env:"SUMMARY_QUEUE_SIZE" envDefault:"100"`
	SummaryWorkers   int `env:"SUMMARY_WORKERS" envDefault:"2"`

	SentryDSN          string   `env:"SENTRY_DSN"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string   `env:"LOG_FORMAT" envDefault:"text"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// LoadConfig reads .env when present, then the environment, into AppConfig.
func LoadConfig() error {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	AppConfig = cfg
	logConfig()
	return nil
}

// Validate checks the settings that have no safe default.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver)
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBSSLMode,
	)
}

func (c Config) SMTPSettings() utils.SMTPConfig {
	return utils.SMTPConfig{
		Host:      c.SMTP.Host,
		Port:      c.SMTP.Port,
		Username:  c.SMTP.Username,
		Password:  c.SMTP.Password,
		FromEmail: c.SMTP.FromEmail,
		FromName:  c.SMTP.FromName,
	}
}

func ConnectDB() error {
	log := utils.Component("config")
	log.Info("Attempting to connect to database...")

	dsn := AppConfig.DSN()
	log.WithField("dsn", maskPassword(dsn)).Debug("Using connection string")

	gormCfg := &gorm.Config{TranslateError: true}
	if AppConfig.Environment == "production" {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("Successfully connected to the database")

	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Info("Database migration completed")
	return nil
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	utils.Component("config").WithFields(map[string]interface{}{
		"environment":    AppConfig.Environment,
		"server_port":    AppConfig.ServerPort,
		"storage_driver": AppConfig.StorageDriver,
		"database":       fmt.Sprintf("%s@%s:%s/%s", AppConfig.DBUser, AppConfig.DBHost, AppConfig.DBPort, AppConfig.DBName),
		"redis_enabled":  AppConfig.Redis.Enabled,
		"smtp_enabled":   AppConfig.SMTP.Host != "",
		"sentry_enabled": AppConfig.SentryDSN != "",
	}).Info("Loaded configuration")
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
