package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yeremiapane/farm-to-table/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins []string
	UploadDir   string

	DeliveryFee           float64
	FreeDeliveryThreshold float64
	EnforceOrderAmount    bool

	LowStockThreshold    int
	StockMonitorInterval time.Duration

	RedisAddr       string
	RedisPassword   string
	CatalogCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	AdminEmail    string
	AdminPassword string

	RateLimitRPS float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "farm_to_table.db")
	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:5174")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("DELIVERY_FEE", 50)
	v.SetDefault("FREE_DELIVERY_THRESHOLD", 500)
	v.SetDefault("ENFORCE_ORDER_AMOUNT", true)
	v.SetDefault("LOW_STOCK_THRESHOLD", 5)
	v.SetDefault("STOCK_MONITOR_INTERVAL", "30s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("CATALOG_CACHE_TTL", "60s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "farm-to-table.orders")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("RATE_LIMIT_RPS", 20)
}

// Load reads .env (if present) and the process environment. Environment
// variables win over .env values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}
	return FromViper(viper.New())
}

// FromViper builds a Config from v after applying defaults and binding the
// environment.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:                  v.GetString("PORT"),
		GinMode:               v.GetString("GIN_MODE"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		DBDriver:              strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:                 v.GetString("DB_DSN"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		JWTTTL:                v.GetDuration("JWT_TTL"),
		CORSOrigins:           splitList(v.GetString("CORS_ORIGINS")),
		UploadDir:             v.GetString("UPLOAD_DIR"),
		DeliveryFee:           v.GetFloat64("DELIVERY_FEE"),
		FreeDeliveryThreshold: v.GetFloat64("FREE_DELIVERY_THRESHOLD"),
		EnforceOrderAmount:    v.GetBool("ENFORCE_ORDER_AMOUNT"),
		LowStockThreshold:     v.GetInt("LOW_STOCK_THRESHOLD"),
		StockMonitorInterval:  v.GetDuration("STOCK_MONITOR_INTERVAL"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		CatalogCacheTTL:       v.GetDuration("CATALOG_CACHE_TTL"),
		KafkaBrokers:          splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:            v.GetString("KAFKA_TOPIC"),
		AdminEmail:            v.GetString("ADMIN_EMAIL"),
		AdminPassword:         v.GetString("ADMIN_PASSWORD"),
		RateLimitRPS:          v.GetFloat64("RATE_LIMIT_RPS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want mysql or sqlite)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.DeliveryFee < 0 || c.FreeDeliveryThreshold < 0 {
		return fmt.Errorf("delivery pricing cannot be negative")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD cannot be negative")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// InitDB opens the configured database.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	default:
		dialector = sqlite.Open(cfg.DBDSN)
	}

	logLevel := logger.Warn
	if cfg.GinMode == "release" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	utils.InfoLogger.Printf("Connected to %s database", cfg.DBDriver)
	return db, nil
}
