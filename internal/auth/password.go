package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher はパスワードのハッシュ化と照合を行います。
// 平文パスワードを保持・出力する操作は提供しません。
type Hasher struct {
	cost int
}

// NewHasher は Hasher を作成します。cost が 0 以下の場合は
// bcrypt の既定コストを使用します。
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードからダイジェストを生成します。
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードがダイジェストと一致するか検証します。
func (h *Hasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
