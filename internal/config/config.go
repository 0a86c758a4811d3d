// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// SessionStoreCookie は署名付きクッキーにセッションを保存するモードです。
	SessionStoreCookie = "cookie"
	// SessionStoreRedis はセッション本体を Redis に保存するモードです。
	SessionStoreRedis = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret   string // セッション署名用の秘密鍵
	SessionStore    string // セッションストアの種別 (cookie, redis)
	SessionRedisURL string // redis モード時の接続URL

	// ユーザーストア設定
	DatabasePath string // SQLiteデータベースファイルのパス

	// パスワードハッシュ設定
	BcryptCost int // bcryptのコストパラメータ（0 はライブラリ既定値）

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 静的ファイル設定
	ExchangeDir string // /exchange で配信するアセットのディレクトリ
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// セッション設定
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionStore:    getEnv("SESSION_STORE", SessionStoreCookie),
		SessionRedisURL: getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/0"),

		// ユーザーストア設定
		DatabasePath: getEnv("DATABASE_PATH", "authgate.db"),

		// パスワードハッシュ設定
		BcryptCost: getEnvAsInt("BCRYPT_COST", 0),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// 静的ファイル設定
		ExchangeDir: getEnv("EXCHANGE_DIR", filepath.Join("web", "static", "exchange")),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.SessionStore != SessionStoreCookie && c.SessionStore != SessionStoreRedis {
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q",
			SessionStoreCookie, SessionStoreRedis, c.SessionStore)
	}

	// ローカル開発では署名鍵は任意
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required in release mode")
		}
		if c.SessionStore == SessionStoreRedis && c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
