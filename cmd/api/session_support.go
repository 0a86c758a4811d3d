package main

import (
	"time"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/authgate/internal/auth"
	"github.com/yourusername/authgate/internal/config"
	"github.com/yourusername/authgate/internal/session"
)

// setupSessionStore は設定に応じてセッションストアを組み立てます。
// 既定は署名付きクッキー、SESSION_STORE=redis の場合はサーバー側の
// Redis ストアを使用します。
func setupSessionStore(cfg *config.Config) (ginsessions.Store, error) {
	secret := []byte(cfg.SessionSecret)

	if cfg.SessionStore == config.SessionStoreRedis {
		opt, err := redis.ParseURL(cfg.SessionRedisURL)
		if err != nil {
			return nil, err
		}
		rdb := redis.NewClient(opt)
		ttl := time.Duration(auth.SessionMaxAgeSeconds()) * time.Second
		return session.NewStore(rdb, ttl, secret), nil
	}

	return cookie.NewStore(secret), nil
}
