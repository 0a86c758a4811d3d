// Package session はセッション本体を Redis に保存するストアを提供します。
// クッキーには署名付きセッションIDのみを載せ、値はサーバー側に持ちます。
package session

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "sess:"

// Store は gin-contrib/sessions の Store インターフェースを満たす
// Redis バックエンドです。
type Store struct {
	rdb    *redis.Client
	codecs []securecookie.Codec
	opts   *gsessions.Options
	ttl    time.Duration
}

// NewStore は Store を作成します。keyPairs はクッキー署名鍵です。
func NewStore(rdb *redis.Client, ttl time.Duration, keyPairs ...[]byte) *Store {
	return &Store{
		rdb:    rdb,
		codecs: securecookie.CodecsFromPairs(keyPairs...),
		opts: &gsessions.Options{
			Path:   "/",
			MaxAge: int(ttl.Seconds()),
		},
		ttl: ttl,
	}
}

// Options はクッキー属性を設定します（gin-contrib/sessions.Store の一部）。
func (s *Store) Options(opts ginsessions.Options) {
	s.opts = opts.ToGorillaOptions()
}

// Get は名前付きセッションをリクエストのレジストリから取得します。
func (s *Store) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New はクッキーのセッションIDを検証し、対応する値を Redis から
// 読み込みます。ID が無い・検証に失敗した・期限切れの場合は
// 空の新規セッションを返します。
func (s *Store) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.opts
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.codecs...); err != nil {
		// 署名が不正なクッキーは無視して新規セッションを払い出す
		session.ID = ""
		return session, nil
	}
	if err := s.load(r.Context(), session); err != nil {
		return session, err
	}
	return session, nil
}

// Save はセッションを Redis に書き込み、IDをクッキーに載せます。
// MaxAge が負の場合はセッションを破棄します。
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if session.Options.MaxAge < 0 {
		if err := s.erase(r.Context(), session); err != nil {
			return err
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		id, err := generateID()
		if err != nil {
			return err
		}
		session.ID = id
	}

	if err := s.persist(r.Context(), session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *Store) load(ctx context.Context, session *gsessions.Session) error {
	data, err := s.rdb.Get(ctx, sessionKey(session.ID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// 期限切れ等で本体が無い場合は新規扱い
			return nil
		}
		return err
	}

	values, err := decodeValues(data)
	if err != nil {
		return err
	}
	session.Values = values
	session.IsNew = false
	return nil
}

func (s *Store) persist(ctx context.Context, session *gsessions.Session) error {
	payload, err := encodeValues(session.Values)
	if err != nil {
		return err
	}

	ttl := s.ttl
	if session.Options.MaxAge > 0 {
		ttl = time.Duration(session.Options.MaxAge) * time.Second
	}
	return s.rdb.Set(ctx, sessionKey(session.ID), payload, ttl).Err()
}

func (s *Store) erase(ctx context.Context, session *gsessions.Session) error {
	if session.ID == "" {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(session.ID)).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func encodeValues(values map[interface{}]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValues(data []byte) (map[interface{}]interface{}, error) {
	values := make(map[interface{}]interface{})
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

func generateID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
