package syncer

import (
	"context"
	"crypto/rand"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/j1a5h3ng/attendance-app/internal/offline"
)

// Outcome: 同期1回分の結果種別
type Outcome string

const (
	OutcomeNoop     Outcome = "noop"
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
)

// Result: Sync 1回分のサマリ。RunID はログ突合用の ULID。
type Result struct {
	Outcome Outcome `json:"outcome"`
	Synced  int     `json:"synced"`
	Failed  int     `json:"failed"`
	RunID   string  `json:"run_id"`
}

func newRunID() string {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "unknown"
	}
	return id.String()
}

// Coordinator: オフラインキューとリモートの突き合わせを行う。
// synced フラグを立てるのはこの型だけ（single-writer 規律）。
type Coordinator struct {
	mu    sync.Mutex
	queue *offline.Queue
	tx    Transmitter
}

func NewCoordinator(queue *offline.Queue, tx Transmitter) *Coordinator {
	return &Coordinator{queue: queue, tx: tx}
}

// Sync: 未同期アクションを enqueue 順に送信し、ACK ごとにアクションと
// 対の打刻レコードの synced を立てる。
//
//   - 接続有無の判定は呼び出し側の責任（再接続イベント／手動リトライで呼ばれる）
//   - 1件の送信失敗は記録して続行する。失敗分は pending のまま次回へ。
//   - 同期済みは Pending に現れないので再実行は自然に冪等。
//   - アクションだけあってレコードが無い片割れは、ログを残して同期済み扱い。
func (c *Coordinator) Sync(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	runID := newRunID()

	pending, err := c.queue.Pending(ctx)
	if err != nil {
		return Result{RunID: runID}, err
	}
	if len(pending) == 0 {
		return Result{Outcome: OutcomeNoop, RunID: runID}, nil
	}

	log.Printf("[INFO] sync %s: %d pending actions", runID, len(pending))

	res := Result{RunID: runID}
	for _, a := range pending {
		if err := c.tx.Send(ctx, a); err != nil {
			// 次回リトライに回す。後続はブロックしない。
			log.Printf("[WARN] sync %s: transmit failed action=%s kind=%s: %v", runID, a.ID, a.Kind, err)
			res.Failed++
			continue
		}

		if err := c.queue.MarkActionSynced(ctx, a); err != nil {
			log.Printf("[WARN] sync %s: mark action failed action=%s: %v", runID, a.ID, err)
			res.Failed++
			continue
		}

		if a.Kind.IsClock() {
			rec, err := a.RecordPayload()
			if err != nil {
				log.Printf("[WARN] sync %s: broken payload action=%s: %v", runID, a.ID, err)
			} else if found, err := c.queue.MarkRecordSynced(ctx, rec.ID); err != nil {
				log.Printf("[WARN] sync %s: mark record failed record=%s: %v", runID, rec.ID, err)
			} else if !found {
				// レコード書き込み前にクラッシュした片割れ。スキップして先へ。
				log.Printf("[INFO] sync %s: orphan action=%s record=%s missing, treated as synced", runID, a.ID, rec.ID)
			}
		}
		res.Synced++
	}

	if res.Failed > 0 {
		res.Outcome = OutcomePartial
	} else {
		res.Outcome = OutcomeComplete
	}
	log.Printf("[INFO] sync %s: done synced=%d failed=%d", runID, res.Synced, res.Failed)
	return res, nil
}
