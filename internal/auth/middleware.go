package auth

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireLogin は保護対象ルートの前段で認証状態を検証するミドルウェアを
// 返します。未ログインの場合は元のパスを next に載せてログイン画面へ
// リダイレクトし、ハンドラー本体は実行しません。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionKeyUserID).(string)
		if !ok || userID == "" {
			redirectToLogin(c)
			return
		}

		// 発行時刻からの絶対寿命を超えたセッションは破棄する
		issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
		if issuedAt.IsZero() || time.Since(issuedAt) > maxSessionLifetime {
			session.Clear()
			_ = session.Save()
			redirectToLogin(c)
			return
		}

		email, _ := session.Get(sessionKeyEmail).(string)
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextEmailKey, email)
		c.Next()
	}
}

// RedirectIfAuthenticated はログイン済みユーザーをダッシュボードへ
// リダイレクトするミドルウェアを返します。登録・ログイン画面に適用し、
// CSRF検証やフォーム処理より先に必ず実行します。
func (m *Manager) RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.currentUserID(c) != "" {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

// VerifyCSRF はフォームの csrf_token フィールドを検証するミドルウェアです。
// 安全なメソッドは検証せずに通します。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, ok := session.Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			c.String(http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}

		received := c.PostForm(csrfField)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			c.String(http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}

		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	target := "/login"
	if p := c.Request.URL.Path; p != "" && p != "/login" {
		target += "?next=" + url.QueryEscape(p)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
