// Package user はユーザーエンティティと永続化ストアを提供します。
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User は登録済みユーザーを表します。
type User struct {
	ID             string    // 作成時に採番される不変の識別子
	Email          string    // 正規化済みメールアドレス（一意）
	PasswordDigest string    // bcryptハッシュ。平文は保持しない
	IsActive       bool      // false のユーザーはログイン不可
	CreatedAt      time.Time // ストアが採時する作成時刻
}

// New は正規化済みメールアドレスとパスワードダイジェストから
// 新しいユーザーを作成します。ID はここで採番されます。
func New(email, passwordDigest string) *User {
	return &User{
		ID:             uuid.NewString(),
		Email:          NormalizeEmail(email),
		PasswordDigest: passwordDigest,
		IsActive:       true,
	}
}

// NormalizeEmail はメールアドレスを小文字化し前後の空白を除去します。
// 一意性の判定と検索は必ずこの正規化結果に対して行います。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
