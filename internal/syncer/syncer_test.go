package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

// 打刻時刻とIDを決定的にする（同一ミリ秒での順序揺れを避ける）

type tickClock struct{ now time.Time }

func (c *tickClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type seqID struct{ n int }

func (g *seqID) New() string {
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

// recordingTransmitter: 送信順を記録し、指定 ID だけ失敗させる
type recordingTransmitter struct {
	sent    []string
	failIDs map[string]bool
}

func (r *recordingTransmitter) Send(_ context.Context, a offline.Action) error {
	if r.failIDs[a.ID] {
		return errors.New("transmit refused")
	}
	r.sent = append(r.sent, a.ID)
	return nil
}

func newFixture(t *testing.T) (kvstore.Store, *offline.Queue) {
	t.Helper()
	store := kvstore.NewMemory()
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	clock := &tickClock{now: time.UnixMilli(1700000000000)}
	return store, offline.NewQueueWithDeps(store, clock, &seqID{})
}

func TestSync_NoopWhenEmpty(t *testing.T) {
	ctx := context.Background()
	_, q := newFixture(t)
	c := NewCoordinator(q, StubTransmitter{})

	res, err := c.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Outcome != OutcomeNoop {
		t.Fatalf("expected noop, got %+v", res)
	}
	if res.RunID == "" {
		t.Fatalf("expected run id")
	}
}

func TestSync_FIFOTransmitOrder(t *testing.T) {
	ctx := context.Background()
	_, q := newFixture(t)

	var want []string
	for _, n := range []string{"A", "B", "C"} {
		id, err := q.Enqueue(ctx, offline.KindOther, map[string]string{"name": n})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		want = append(want, id)
	}

	tx := &recordingTransmitter{}
	c := NewCoordinator(q, tx)
	res, err := c.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Outcome != OutcomeComplete || res.Synced != 3 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(tx.sent) != 3 {
		t.Fatalf("expected 3 transmits, got %d", len(tx.sent))
	}
	for i := range want {
		if tx.sent[i] != want[i] {
			t.Fatalf("transmit order mismatch at %d: got %s want %s", i, tx.sent[i], want[i])
		}
	}
}

func TestSync_SecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	_, q := newFixture(t)

	recID, _, err := q.EnqueueRecord(ctx, offline.Record{UserID: "u1", Kind: offline.KindClockIn})
	if err != nil {
		t.Fatalf("enqueueRecord: %v", err)
	}

	c := NewCoordinator(q, StubTransmitter{})
	res, err := c.Sync(ctx)
	if err != nil || res.Outcome != OutcomeComplete || res.Synced != 1 {
		t.Fatalf("first sync: res=%+v err=%v", res, err)
	}

	// 2回目は NoOp。レコードが二度遷移しないことも確認。
	res, err = c.Sync(ctx)
	if err != nil || res.Outcome != OutcomeNoop {
		t.Fatalf("second sync: res=%+v err=%v", res, err)
	}

	recs, err := q.Records(ctx, "u1")
	if err != nil || len(recs) != 1 {
		t.Fatalf("records: %v %v", recs, err)
	}
	if recs[0].ID != recID || !recs[0].Synced {
		t.Fatalf("expected record synced once, got %+v", recs[0])
	}
}

func TestSync_PartialFailure(t *testing.T) {
	ctx := context.Background()
	_, q := newFixture(t)

	var ids []string
	for i := 0; i < 3; i++ {
		_, actID, err := q.EnqueueRecord(ctx, offline.Record{UserID: "u1", Kind: offline.KindClockIn})
		if err != nil {
			t.Fatalf("enqueueRecord: %v", err)
		}
		ids = append(ids, actID)
	}

	// 2件目だけ送信失敗させる
	tx := &recordingTransmitter{failIDs: map[string]bool{ids[1]: true}}
	c := NewCoordinator(q, tx)

	res, err := c.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Outcome != OutcomePartial || res.Synced != 2 || res.Failed != 1 {
		t.Fatalf("expected partial(2,1), got %+v", res)
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[1] {
		t.Fatalf("expected only failed action pending, got %+v", pending)
	}

	// 失敗が解消すれば次回で完了する
	tx.failIDs = nil
	res, err = c.Sync(ctx)
	if err != nil || res.Outcome != OutcomeComplete || res.Synced != 1 {
		t.Fatalf("retry sync: res=%+v err=%v", res, err)
	}
}

func TestSync_OrphanActionTreatedAsSynced(t *testing.T) {
	ctx := context.Background()
	store, q := newFixture(t)

	recID, _, err := q.EnqueueRecord(ctx, offline.Record{UserID: "u1", Kind: offline.KindClockOut})
	if err != nil {
		t.Fatalf("enqueueRecord: %v", err)
	}
	// クラッシュ片割れを再現: レコードだけ消す
	if err := store.Delete(ctx, kvstore.CollectionAttendanceRecords, recID); err != nil {
		t.Fatalf("delete record: %v", err)
	}

	c := NewCoordinator(q, StubTransmitter{})
	res, err := c.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	// 孤児アクションは失敗ではなく同期済み扱い
	if res.Outcome != OutcomeComplete || res.Synced != 1 || res.Failed != 0 {
		t.Fatalf("expected complete(1), got %+v", res)
	}
	n, _ := q.PendingCount(ctx)
	if n != 0 {
		t.Fatalf("expected 0 pending, got %d", n)
	}
}
