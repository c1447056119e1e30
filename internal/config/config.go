// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// 実行環境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// JWTSecretMinLength はJWT署名鍵の最小長。
const JWTSecretMinLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// JWT
	JWTSecret            string
	JWTExpirationMinutes int

	// Password
	BcryptCost int

	// Refresh token cleanup
	RefreshTokenRetentionDays int

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort int
	Env        string

	// Logging
	LogLevel string

	// CORS
	CORSAllowedOrigin string

	// X-Forwarded-For等を信頼するリバースプロキシ（CIDRまたはIPのカンマ区切り）
	TrustedProxies []netip.Prefix
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load はカレントディレクトリの.envがあれば読み込んだ上で、環境変数からConfigを読み込む。
// 既に設定済みの環境変数は.envで上書きしない。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv は現在の環境変数からConfigを読み込んで検証する。
// 必須環境変数の欠落と値の範囲外はまとめて1つのエラーとして返す。
func FromEnv() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	var problems []string
	intVar := func(key string, def, min, max int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s must be an integer", key))
			return def
		}
		if v < min || v > max {
			problems = append(problems, fmt.Sprintf("%s must be between %d and %d", key, min, max))
		}
		return v
	}

	cfg.JWTExpirationMinutes = intVar("JWT_EXPIRATION_MINUTES", 60, 1, 1440)
	cfg.BcryptCost = intVar("BCRYPT_COST", 12, 4, 31)
	cfg.RefreshTokenRetentionDays = intVar("REFRESH_TOKEN_RETENTION_DAYS", 0, 0, 3650)
	cfg.RateLimitGeneral = intVar("RATE_LIMIT_GENERAL", 120, 1, 100000)
	cfg.RateLimitAuth = intVar("RATE_LIMIT_AUTH", 20, 1, 100000)
	cfg.ServerPort = intVar("SERVER_PORT", 3000, 1, 65535)
	cfg.Env = getEnvString("APP_ENV", EnvDevelopment)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	proxies, err := parsePrefixes(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		problems = append(problems, fmt.Sprintf("TRUSTED_PROXIES: %v", err))
	}
	cfg.TrustedProxies = proxies

	if len(cfg.JWTSecret) < JWTSecretMinLength {
		problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d characters", JWTSecretMinLength))
	}
	if !oneOf(cfg.Env, EnvDevelopment, EnvProduction, EnvTest) {
		problems = append(problems, "APP_ENV must be one of development, production, test")
	}
	if !oneOf(cfg.LogLevel, "error", "warn", "info", "debug") {
		problems = append(problems, "LOG_LEVEL must be one of error, warn, info, debug")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// parsePrefixes はカンマ区切りのCIDRまたはIPアドレスを解析する。
// 単独のIPアドレスはそのアドレスだけを含むプレフィックスになる。
func parsePrefixes(v string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p, err := netip.ParsePrefix(part); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q", part)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}
