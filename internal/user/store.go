package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrEmailTaken は同じメールアドレスのユーザーが既に存在する場合に返されます。
	ErrEmailTaken = errors.New("email already registered")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	password_digest TEXT NOT NULL,
	is_active       INTEGER NOT NULL DEFAULT 1,
	created_at      INTEGER NOT NULL
);
`

// Store はユーザーをSQLiteに永続化します。
type Store struct {
	db *sql.DB
}

// OpenStore はデータベースを開き、スキーマを初期化して Store を返します。
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLiteの書き込みは常に1本。接続を1本に絞ることで、同時INSERTが
	// SQLITE_BUSY ではなく一意制約違反として順番に検出される
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore は既存の *sql.DB から Store を作成します（テスト用）。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close はデータベース接続を閉じます。
func (s *Store) Close() error {
	return s.db.Close()
}

// Create はユーザーを1件挿入します。メールアドレスの一意制約に
// 違反した場合は ErrEmailTaken を返します。事前の重複チェックを
// すり抜けた同時登録もここで必ず検出されます。
func (s *Store) Create(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_digest, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordDigest, boolToInt(u.IsActive), u.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail は正規化済みメールアドレスでユーザーを検索します。
// 見つからない場合は (nil, nil) を返します。
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_digest, is_active, created_at
		 FROM users WHERE email = ?`,
		NormalizeEmail(email),
	)

	var u User
	var active int
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordDigest, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	u.IsActive = active != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// SetActive はユーザーの有効フラグを更新します。
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_active = ? WHERE id = ?`,
		boolToInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
