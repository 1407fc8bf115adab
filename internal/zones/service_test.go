package zones

import (
	"context"
	"testing"

	"github.com/j1a5h3ng/attendance-app/internal/geofence"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := kvstore.NewMemory()
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	return NewService(store, 100)
}

func TestService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	z, err := s.Create(ctx, CreateZoneRequest{Name: "Main Office", Latitude: 37.7749, Longitude: -122.4194})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if z.ID == "" || z.RadiusMeters != 100 || z.ColorTag != 0 {
		t.Fatalf("unexpected zone: %+v", z)
	}

	// 2件目のカラータグは循環払い出しで 1
	z2, err := s.Create(ctx, CreateZoneRequest{Name: "Branch Office", Latitude: 34.0522, Longitude: -118.2437})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if z2.ColorTag != 1 {
		t.Fatalf("expected color_tag 1, got %d", z2.ColorTag)
	}

	list, err := s.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	// 作成順が保たれる（MatchZone の先勝ちがこの順に依存する）
	if list[0].Name != "Main Office" || list[1].Name != "Branch Office" {
		t.Fatalf("creation order not preserved: %+v", list)
	}
}

func TestService_Create_InvalidRadius(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	bad := -1.0
	_, err := s.Create(ctx, CreateZoneRequest{Name: "X", Latitude: 0.1, Longitude: 0.1, RadiusMeters: &bad})
	if err == nil {
		t.Fatalf("negative radius must be rejected")
	}
}

func TestService_NameNormalizedNFKC(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	// 全角英数は半角へ正規化される
	z, err := s.Create(ctx, CreateZoneRequest{Name: "本社オフィス　Ｂ１", Latitude: 35.68, Longitude: 139.76})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if z.Name != "本社オフィス B1" {
		t.Fatalf("expected NFKC-normalized name, got %q", z.Name)
	}
}

func TestService_UpdateDisableExcludedFromActive(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	z, err := s.Create(ctx, CreateZoneRequest{Name: "Main Office", Latitude: 37.7749, Longitude: -122.4194})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	disabled := true
	if _, err := s.Update(ctx, z.ID, UpdateZoneRequest{Disabled: &disabled}); err != nil {
		t.Fatalf("update: %v", err)
	}

	active, err := s.ActiveZones(ctx)
	if err != nil {
		t.Fatalf("activeZones: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("disabled zone must be excluded, got %+v", active)
	}

	// List には載り続ける
	list, _ := s.List(ctx)
	if len(list) != 1 || !list[0].Disabled {
		t.Fatalf("expected disabled zone in list, got %+v", list)
	}
}

func TestService_Seed_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	seeds := []geofence.Zone{
		{ID: "main-office", Name: "Main Office", Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 100},
		{ID: "branch-office", Name: "Branch Office", Latitude: 34.0522, Longitude: -118.2437, RadiusMeters: 150},
	}
	if err := s.Seed(ctx, seeds); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// 再シードしても増えない
	if err := s.Seed(ctx, seeds); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 zones after reseed, got %d (%v)", len(list), err)
	}
}

func TestService_GetDelete(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	if _, err := s.Get(ctx, "nope"); err == nil {
		t.Fatalf("expected not found")
	}

	z, _ := s.Create(ctx, CreateZoneRequest{Name: "Main Office", Latitude: 37.7749, Longitude: -122.4194})
	if err := s.Delete(ctx, z.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, z.ID); err == nil {
		t.Fatalf("expected not found on second delete")
	}
}
