package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `mapstructure:"PORT"` // サーバーポート（8080）

	DatabaseURL      string `mapstructure:"DATABASE_URL"`      // あれば最優先
	PostgresUser     string `mapstructure:"POSTGRES_USER"`     // DBユーザー
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"` // DBパスワード
	PostgresDB       string `mapstructure:"POSTGRES_DB"`       // DB名
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`     // DBホスト
	PostgresPort     int    `mapstructure:"POSTGRES_PORT"`     // DBポート
	PostgresSSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	DBMaxOpenConns   int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns   int    `mapstructure:"DB_MAX_IDLE_CONNS"`

	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"` // 起動時にmigrations/を適用
	DBAutoMigrate  bool `mapstructure:"DB_AUTO_MIGRATE"`  // 開発用: GORMのAutoMigrate

	JWTSecret string        `mapstructure:"JWT_SECRET"` // JWT署名シークレット
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	GoEnv           string        `mapstructure:"GO_ENV"` // dev/prod
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"PORT":              "8080",
	"DATABASE_URL":      "",
	"POSTGRES_USER":     "postgres",
	"POSTGRES_PASSWORD": "postgres",
	"POSTGRES_DB":       "shop",
	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     5432,
	"POSTGRES_SSLMODE":  "disable",
	"DB_MAX_OPEN_CONNS": 20,
	"DB_MAX_IDLE_CONNS": 5,
	"MIGRATE_ON_START":  false,
	"DB_AUTO_MIGRATE":   false,
	"JWT_SECRET":        "",
	"JWT_TTL":           "1h",
	"GO_ENV":            "dev",
	"LOG_LEVEL":         "info",
	"SHUTDOWN_TIMEOUT":  "10s",
}

// Loadは.env（あれば）と環境変数から読む
func Load() (Config, error) {
	// .envは無くてもよい
	_ = godotenv.Load()

	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//必須チェック
func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.DatabaseURL == "" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresPort <= 0 {
			return fmt.Errorf("POSTGRES_PORT must be number")
		}
	}
	switch c.GoEnv {
	case "dev", "prod", "test":
	default:
		return fmt.Errorf("GO_ENV must be dev, prod or test")
	}
	return nil
}

// DSNはpostgres://形式（gormとgolang-migrateの両方で使う）
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     c.PostgresHost + ":" + strconv.Itoa(c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
	}
	return u.String()
}

// ":8080"の形にする
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}
