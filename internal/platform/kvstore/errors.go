package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable: 永続ストレージ自体が開けない（オフライン機能は全滅、
	// 呼び出し側はオンライン専用モードへ縮退する）
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDuplicateKey: Add で同一キーが既に存在
	ErrDuplicateKey = errors.New("duplicate key")
)

// PersistenceError: ストア書き込み失敗。内部では自動リトライしない。
// リトライするかユーザに見せるかは呼び出し側の責任。
type PersistenceError struct {
	Op         string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("kvstore %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op, collection string, err error) error {
	return &PersistenceError{Op: op, Collection: collection, Err: err}
}
