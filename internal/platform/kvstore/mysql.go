package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	mysql "github.com/go-sql-driver/mysql"
)

// MySQL: release モードの永続実装。
// コレクションは (collection, item_key) を主キーとした単一テーブルに畳み込む。
// body は JSON。1操作 = 1ステートメントなのでトランザクションは使わない。
type MySQL struct {
	db          *sql.DB
	collections []string
}

func NewMySQL(db *sql.DB, collections ...string) *MySQL {
	if len(collections) == 0 {
		collections = DefaultCollections()
	}
	return &MySQL{db: db, collections: collections}
}

func (s *MySQL) Open(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	const q = `
	CREATE TABLE IF NOT EXISTS kv_items (
		collection VARCHAR(64)  NOT NULL,
		item_key   VARCHAR(128) NOT NULL,
		body       JSON         NOT NULL,
		updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		PRIMARY KEY (collection, item_key)
	)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *MySQL) known(collection string) error {
	for _, c := range s.collections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("unknown collection: %s", collection)
}

func (s *MySQL) Add(ctx context.Context, collection, key string, item any) error {
	if err := s.known(collection); err != nil {
		return persistErr("add", collection, err)
	}
	body, err := json.Marshal(item)
	if err != nil {
		return persistErr("add", collection, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv_items (collection, item_key, body) VALUES (?, ?, ?)`,
		collection, key, body)
	if err != nil {
		// 1062 = ER_DUP_ENTRY
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrDuplicateKey
		}
		return persistErr("add", collection, err)
	}
	return nil
}

func (s *MySQL) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if err := s.known(collection); err != nil {
		return nil, persistErr("getAll", collection, err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM kv_items WHERE collection = ?`, collection)
	if err != nil {
		return nil, persistErr("getAll", collection, err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0, 16)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, persistErr("getAll", collection, err)
		}
		out = append(out, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("getAll", collection, err)
	}
	return out, nil
}

func (s *MySQL) GetByKey(ctx context.Context, collection, key string, dst any) (bool, error) {
	if err := s.known(collection); err != nil {
		return false, persistErr("getByKey", collection, err)
	}
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM kv_items WHERE collection = ? AND item_key = ? LIMIT 1`,
		collection, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, persistErr("getByKey", collection, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return false, persistErr("getByKey", collection, err)
	}
	return true, nil
}

func (s *MySQL) Update(ctx context.Context, collection, key string, item any) error {
	if err := s.known(collection); err != nil {
		return persistErr("update", collection, err)
	}
	body, err := json.Marshal(item)
	if err != nil {
		return persistErr("update", collection, err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO kv_items (collection, item_key, body)
	VALUES (?, ?, ?)
	ON DUPLICATE KEY UPDATE body = VALUES(body)`,
		collection, key, body)
	if err != nil {
		return persistErr("update", collection, err)
	}
	return nil
}

func (s *MySQL) Delete(ctx context.Context, collection, key string) error {
	if err := s.known(collection); err != nil {
		return persistErr("delete", collection, err)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_items WHERE collection = ? AND item_key = ?`, collection, key)
	if err != nil {
		return persistErr("delete", collection, err)
	}
	return nil
}

func (s *MySQL) Clear(ctx context.Context, collection string) error {
	if err := s.known(collection); err != nil {
		return persistErr("clear", collection, err)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_items WHERE collection = ?`, collection)
	if err != nil {
		return persistErr("clear", collection, err)
	}
	return nil
}
