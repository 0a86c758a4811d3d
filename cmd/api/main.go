// Package main は認証ゲートウェイサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/authgate/internal/auth"
	"github.com/yourusername/authgate/internal/config"
	"github.com/yourusername/authgate/internal/exchange"
	"github.com/yourusername/authgate/internal/user"
	"github.com/yourusername/authgate/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// ユーザーストアの初期化
	store, err := user.OpenStore(context.Background(), cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open user store: %v", err)
	}
	defer store.Close()

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.SetHTMLTemplate(web.Templates())

	// セッションストアの設定（クッキー署名鍵は必須）
	sessionStore, err := setupSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to set up session store: %v", err)
	}
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, cfg, store)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting auth gateway on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "authgate",
		"version": "0.1.0",
	})
}

// setupRoutes はルートと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, store *user.Store) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	manager := auth.NewManager(cfg, store)

	router.GET("/", manager.Index)

	// ログイン済みの場合はCSRF検証やフォーム処理より先にリダイレクトする
	forms := router.Group("")
	forms.Use(manager.RedirectIfAuthenticated())
	{
		forms.GET("/register", manager.ShowRegister)
		forms.POST("/register", manager.VerifyCSRF(), manager.Register)
		forms.GET("/login", manager.ShowLogin)
		forms.POST("/login", manager.VerifyCSRF(), manager.Login)
	}

	// 認証必須ルート
	protected := router.Group("")
	protected.Use(manager.RequireLogin())
	{
		protected.GET("/logout", manager.Logout)
		protected.GET("/dashboard", manager.Dashboard)
	}

	// 認証と無関係の静的アセット配信
	router.GET("/exchange", exchange.Handler(cfg.ExchangeDir))
}
