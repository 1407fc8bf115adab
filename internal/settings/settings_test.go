package settings

import (
	"context"
	"testing"

	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := kvstore.NewMemory()
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	return NewService(store)
}

func TestGet_DefaultsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	st, err := s.Get(ctx, "emp-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// 通知は既定で有効
	if !st.NotificationsEnabled || st.UserID != "emp-001" {
		t.Fatalf("unexpected defaults: %+v", st)
	}

	if _, err := s.Get(ctx, ""); err == nil {
		t.Fatalf("empty user id must be rejected")
	}
}

func TestPut_PartialUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	off := false
	st, err := s.Put(ctx, "emp-001", UpdateSettingsRequest{NotificationsEnabled: &off})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if st.NotificationsEnabled {
		t.Fatalf("expected notifications disabled: %+v", st)
	}

	// 片方だけ更新してももう片方は保たれる
	zone := "main-office"
	st, err = s.Put(ctx, "emp-001", UpdateSettingsRequest{DefaultZoneID: &zone})
	if err != nil {
		t.Fatalf("put zone: %v", err)
	}
	if st.NotificationsEnabled || st.DefaultZoneID != "main-office" {
		t.Fatalf("partial update lost a field: %+v", st)
	}

	enabled, err := s.NotificationsEnabled(ctx, "emp-001")
	if err != nil || enabled {
		t.Fatalf("expected disabled, got %v (%v)", enabled, err)
	}
}
