package auth

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
)

// Flash はセッション経由で次のリクエストへ引き継ぐ通知メッセージです。
type Flash struct {
	Level   string // info, success, warning, danger
	Message string
}

func init() {
	// クッキーストアは gob でシリアライズするため型登録が必要
	gob.Register(Flash{})
}

// addFlash は通知をセッションに積みます。保存は呼び出し側で行います。
func addFlash(session sessions.Session, level, message string) {
	session.AddFlash(Flash{Level: level, Message: message})
}

// takeFlashes は積まれた通知を取り出してセッションから消去します。
func takeFlashes(session sessions.Session) []Flash {
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	// Flashes は取り出しと同時にセッションから消えるため保存が必要
	_ = session.Save()

	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	return flashes
}
