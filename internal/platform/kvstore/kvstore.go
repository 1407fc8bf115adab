package kvstore

import (
	"context"
	"encoding/json"
)

// 論理コレクション名（IndexedDB の object store 相当）
const (
	CollectionAttendanceRecords = "attendanceRecords"
	CollectionOfflineActions    = "offlineActions"
	CollectionUserSettings      = "userSettings"
	CollectionNotifications     = "notifications"
	CollectionZones             = "zones"
	CollectionAccounts          = "accounts"
	CollectionLeaveRequests     = "leaveRequests"
	CollectionMedCertificates   = "medicalCertificates"
)

// DefaultCollections: Open 時に作成される既定コレクション一式
func DefaultCollections() []string {
	return []string{
		CollectionAttendanceRecords,
		CollectionOfflineActions,
		CollectionUserSettings,
		CollectionNotifications,
		CollectionZones,
		CollectionAccounts,
		CollectionLeaveRequests,
		CollectionMedCertificates,
	}
}

// Store: 名前付きコレクション上の永続KVストア抽象。
// 各操作は単体でアトミック。コレクション横断のトランザクションは保証しない。
// GetAll の返却順は未定義（必要ならば呼び出し側でソートする）。
type Store interface {
	// Open: 冪等。設定されたコレクションが無ければ作成する。
	Open(ctx context.Context) error

	// Add: 新規挿入。キーが既に存在すれば ErrDuplicateKey。
	Add(ctx context.Context, collection, key string, item any) error

	// GetAll: 全件取得（順序未定義）
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)

	// GetByKey: キー指定取得。無ければ (false, nil)（欠落はエラー扱いしない）
	GetByKey(ctx context.Context, collection, key string, dst any) (bool, error)

	// Update: upsert。無ければ作成、あれば上書き。
	Update(ctx context.Context, collection, key string, item any) error

	// Delete / Clear: 冪等な削除
	Delete(ctx context.Context, collection, key string) error
	Clear(ctx context.Context, collection string) error
}
