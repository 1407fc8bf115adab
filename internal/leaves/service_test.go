package leaves

import (
	"context"
	"testing"

	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

type recordingNotifier struct {
	userIDs []string
	titles  []string
}

func (n *recordingNotifier) Push(_ context.Context, userID, title, _ string) error {
	n.userIDs = append(n.userIDs, userID)
	n.titles = append(n.titles, title)
	return nil
}

func newFixture(t *testing.T) (*Service, *offline.Queue) {
	t.Helper()
	store := kvstore.NewMemory()
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	q := offline.NewQueue(store)
	return NewService(store, q, &recordingNotifier{}), q
}

func TestSubmit_EnqueuesOfflineAction(t *testing.T) {
	ctx := context.Background()
	svc, q := newFixture(t)

	lr, err := svc.Submit(ctx, "u1", "Tanaka", SubmitLeaveRequest{
		LeaveType: "annual",
		StartDate: "2026-09-01",
		EndDate:   "2026-09-03",
		Reason:    "family trip",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if lr.Status != StatusPending || lr.ID == "" {
		t.Fatalf("unexpected request: %+v", lr)
	}

	pending, err := q.Pending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: %v %v", pending, err)
	}
	if pending[0].Kind != offline.KindLeaveRequest {
		t.Fatalf("expected leaveRequest action, got %s", pending[0].Kind)
	}
}

func TestSubmit_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	cases := []SubmitLeaveRequest{
		{LeaveType: "vacation", StartDate: "2026-09-01", EndDate: "2026-09-02"}, // 未知の種別
		{LeaveType: "annual", StartDate: "09/01/2026", EndDate: "2026-09-02"},   // 形式不正
		{LeaveType: "annual", StartDate: "2026-09-03", EndDate: "2026-09-01"},   // 逆転
	}
	for i, req := range cases {
		if _, err := svc.Submit(ctx, "u1", "Tanaka", req); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestUpdateStatus_PendingOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)
	notifier := &recordingNotifier{}
	svc.notifier = notifier

	lr, err := svc.Submit(ctx, "u1", "Tanaka", SubmitLeaveRequest{
		LeaveType: "sick", StartDate: "2026-09-01", EndDate: "2026-09-01",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := svc.UpdateStatus(ctx, lr.ID, StatusApproved)
	if err != nil || got.Status != StatusApproved {
		t.Fatalf("approve: %+v %v", got, err)
	}

	// 審査結果は申請者宛に通知される
	if len(notifier.userIDs) != 1 || notifier.userIDs[0] != "u1" {
		t.Fatalf("expected notification for u1, got %+v", notifier.userIDs)
	}

	// 承認済みからの再変更は不可
	if _, err := svc.UpdateStatus(ctx, lr.ID, StatusRejected); err == nil {
		t.Fatalf("expected conflict for non-pending request")
	}

	if _, err := svc.UpdateStatus(ctx, "missing", StatusApproved); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestList_FiltersByUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	for _, u := range []string{"u1", "u1", "u2"} {
		if _, err := svc.Submit(ctx, u, "x", SubmitLeaveRequest{
			LeaveType: "personal", StartDate: "2026-09-01", EndDate: "2026-09-01",
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	mine, err := svc.List(ctx, "u1")
	if err != nil || len(mine) != 2 {
		t.Fatalf("expected 2 for u1, got %d (%v)", len(mine), err)
	}
	all, err := svc.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 total, got %d (%v)", len(all), err)
	}
}
