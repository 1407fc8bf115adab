package offline

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() string
}

type uuidGen struct{}

func (uuidGen) New() string { return uuid.NewString() }

// ===== Queue本体 =====

// Queue: オフライン打刻の永続キュー。kvstore の offlineActions コレクションに積む。
// synced フラグを立てるのは Sync Coordinator のみ（single-writer 規律）。
type Queue struct {
	store kvstore.Store
	clock Clock
	id    IDGen
}

func NewQueue(store kvstore.Store) *Queue {
	return &Queue{store: store, clock: realClock{}, id: uuidGen{}}
}

// NewQueueWithDeps: テスト用に Clock / IDGen を差し替える
func NewQueueWithDeps(store kvstore.Store, clock Clock, id IDGen) *Queue {
	return &Queue{store: store, clock: clock, id: id}
}

// Enqueue: 任意種別のアクションを synced=false で積む。
// 書き込み失敗は kvstore のエラーをそのまま返す（リトライは呼び出し側）。
func (q *Queue) Enqueue(ctx context.Context, kind Kind, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	a := Action{
		ID:         q.id.New(),
		Kind:       kind,
		Payload:    body,
		EnqueuedAt: q.clock.Now().UnixMilli(),
		Synced:     false,
	}
	if err := q.store.Add(ctx, kvstore.CollectionOfflineActions, a.ID, a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// EnqueueRecord: 打刻レコードに ID を払い出して attendanceRecords へ永続化し、
// 併せて clock 系アクションを積む。戻り値は (recordID, actionID)。
//
// 2コレクションにまたがるがトランザクションは張らない。レコードだけ
// 書けてアクションが書けない片割れは、同期側が孤児として扱う。
func (q *Queue) EnqueueRecord(ctx context.Context, rec Record) (string, string, error) {
	rec.ID = q.id.New()
	rec.Synced = false
	if rec.Timestamp == 0 {
		rec.Timestamp = q.clock.Now().UnixMilli()
	}

	if err := q.store.Add(ctx, kvstore.CollectionAttendanceRecords, rec.ID, rec); err != nil {
		return "", "", err
	}
	actionID, err := q.Enqueue(ctx, rec.Kind, rec)
	if err != nil {
		return rec.ID, "", err
	}
	return rec.ID, actionID, nil
}

// Pending: synced=false のアクションを enqueue 順 (FIFO) で返す
func (q *Queue) Pending(ctx context.Context) ([]Action, error) {
	raws, err := q.store.GetAll(ctx, kvstore.CollectionOfflineActions)
	if err != nil {
		return nil, err
	}
	out := make([]Action, 0, len(raws))
	for _, raw := range raws {
		var a Action
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		if !a.Synced {
			out = append(out, a)
		}
	}
	// GetAll は順序未定義なので enqueue 時刻で並べ直す
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnqueuedAt != out[j].EnqueuedAt {
			return out[i].EnqueuedAt < out[j].EnqueuedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PendingCount: UIバッジ用
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	pending, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// MarkActionSynced: アクションの synced を立てて書き戻す
func (q *Queue) MarkActionSynced(ctx context.Context, a Action) error {
	a.Synced = true
	return q.store.Update(ctx, kvstore.CollectionOfflineActions, a.ID, a)
}

// MarkRecordSynced: 対となる打刻レコードの synced を立てる。
// レコードが見つからなければ (false, nil)（クラッシュ片割れの検出は呼び出し側）。
func (q *Queue) MarkRecordSynced(ctx context.Context, recordID string) (bool, error) {
	var rec Record
	found, err := q.store.GetByKey(ctx, kvstore.CollectionAttendanceRecords, recordID, &rec)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	rec.Synced = true
	if err := q.store.Update(ctx, kvstore.CollectionAttendanceRecords, rec.ID, rec); err != nil {
		return true, err
	}
	return true, nil
}

// Records: ユーザの打刻レコード一覧（順序未定義）
func (q *Queue) Records(ctx context.Context, userID string) ([]Record, error) {
	raws, err := q.store.GetAll(ctx, kvstore.CollectionAttendanceRecords)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		if userID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}
