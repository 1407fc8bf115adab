package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/j1a5h3ng/attendance-app/internal/geofence"
	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
	"github.com/j1a5h3ng/attendance-app/internal/syncer"
)

// ===== fakes =====

type fakeLocator struct {
	point geofence.GeoPoint
	err   error
}

func (l *fakeLocator) Current(_ context.Context) (geofence.GeoPoint, error) {
	if l.err != nil {
		return geofence.GeoPoint{}, l.err
	}
	return l.point, nil
}

type fakeConn struct{ online bool }

func (c *fakeConn) Online() bool { return c.online }

type staticZones struct{ zones []geofence.Zone }

func (s staticZones) ActiveZones(_ context.Context) ([]geofence.Zone, error) {
	return s.zones, nil
}

var mainOffice = geofence.Zone{
	ID: "main-office", Name: "Main Office",
	Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 100,
}

// Main Office 圏内の点（中心から数m）
var insideMainOffice = geofence.GeoPoint{Latitude: 37.77495, Longitude: -122.4194}

// どのゾーンからも遠い点
var farAway = geofence.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}

type fixture struct {
	queue   *offline.Queue
	coord   *syncer.Coordinator
	locator *fakeLocator
	conn    *fakeConn
	mgr     *Manager
}

func newFixture(t *testing.T, cfg Config, withSync bool) *fixture {
	t.Helper()
	store := kvstore.NewMemory()
	if err := store.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	q := offline.NewQueue(store)
	coord := syncer.NewCoordinator(q, syncer.StubTransmitter{})
	locator := &fakeLocator{point: insideMainOffice}
	conn := &fakeConn{online: true}

	var trigger SyncTrigger
	if withSync {
		trigger = coord
	}
	mgr := NewManager(q, staticZones{zones: []geofence.Zone{mainOffice}}, locator, conn, trigger, cfg)
	return &fixture{queue: q, coord: coord, locator: locator, conn: conn, mgr: mgr}
}

var user = User{ID: "emp-001", Name: "Tanaka"}

// ===== tests =====

func TestClockIn_OfflineThenSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)
	f.conn.online = false

	res, err := f.mgr.ClockIn(ctx, user, ClockInput{})
	if err != nil {
		t.Fatalf("offline clock-in: %v", err)
	}
	if res.Status != StatusClockedIn || !res.Offline {
		t.Fatalf("unexpected result: %+v", res)
	}
	if st := f.mgr.Session(user.ID); !st.ClockedIn {
		t.Fatalf("expected clocked in")
	}

	// 未同期のアクションとレコードの対ができている
	pending, err := f.queue.Pending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: %v %v", pending, err)
	}
	if pending[0].Kind != offline.KindClockIn {
		t.Fatalf("expected clockIn action, got %s", pending[0].Kind)
	}
	recs, _ := f.queue.Records(ctx, user.ID)
	if len(recs) != 1 || recs[0].Synced || recs[0].LocationName != "Unknown Location" {
		t.Fatalf("unexpected record: %+v", recs)
	}

	// 復帰後の同期で両方の synced が立ち、pending は 0 に
	f.conn.online = true
	sres, err := f.coord.Sync(ctx)
	if err != nil || sres.Outcome != syncer.OutcomeComplete {
		t.Fatalf("sync: res=%+v err=%v", sres, err)
	}
	n, _ := f.queue.PendingCount(ctx)
	if n != 0 {
		t.Fatalf("expected pendingCount 0, got %d", n)
	}
	recs, _ = f.queue.Records(ctx, user.ID)
	if !recs[0].Synced {
		t.Fatalf("record not synced: %+v", recs[0])
	}
}

func TestClockIn_Offline_TrustDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: false}, false)
	f.conn.online = false

	_, err := f.mgr.ClockIn(ctx, user, ClockInput{})
	var se *StateError
	if !errors.As(err, &se) || se.Code != CodeOfflineRejected {
		t.Fatalf("expected OFFLINE_REJECTED, got %v", err)
	}
	if st := f.mgr.Session(user.ID); st.ClockedIn {
		t.Fatalf("state must not change")
	}
}

func TestClockIn_Online_ZoneMatched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, true)

	res, err := f.mgr.ClockIn(ctx, user, ClockInput{Device: offline.DeviceInfo{Platform: "android"}})
	if err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	if res.Status != StatusClockedIn || res.Offline || res.Zone == nil || res.Zone.ID != "main-office" {
		t.Fatalf("unexpected result: %+v", res)
	}

	st := f.mgr.Session(user.ID)
	if !st.ClockedIn || st.VerifiedZone == nil || st.VerifiedZone.ID != "main-office" {
		t.Fatalf("unexpected state: %+v", st)
	}

	// オンライン経路は便乗同期で即 synced になる
	n, _ := f.queue.PendingCount(ctx)
	if n != 0 {
		t.Fatalf("expected opportunistic sync, pending=%d", n)
	}
}

func TestClockIn_LocationUnavailable_StateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)
	f.locator.err = errors.New("permission denied")

	_, err := f.mgr.ClockIn(ctx, user, ClockInput{})
	var se *StateError
	if !errors.As(err, &se) || se.Code != CodeLocationUnavailable {
		t.Fatalf("expected LOCATION_UNAVAILABLE, got %v", err)
	}
	if st := f.mgr.Session(user.ID); st.ClockedIn {
		t.Fatalf("no silent transition on location error")
	}
	n, _ := f.queue.PendingCount(ctx)
	if n != 0 {
		t.Fatalf("nothing must be enqueued, pending=%d", n)
	}
}

func TestClockIn_NoMatch_NeedsZoneRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)
	f.locator.point = farAway

	res, err := f.mgr.ClockIn(ctx, user, ClockInput{})
	if err != nil {
		t.Fatalf("expected decision result, got error %v", err)
	}
	if res.Status != StatusNeedsZoneRegistration || res.Point == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if st := f.mgr.Session(user.ID); st.ClockedIn {
		t.Fatalf("state must not change while awaiting registration")
	}
}

func TestClockIn_SelectedZone_VerificationFailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)
	f.locator.point = farAway

	_, err := f.mgr.ClockIn(ctx, user, ClockInput{SelectedZoneID: "main-office"})
	var se *StateError
	if !errors.As(err, &se) || se.Code != CodeLocationVerificationFailed {
		t.Fatalf("expected LOCATION_VERIFICATION_FAILED, got %v", err)
	}
	if st := f.mgr.Session(user.ID); st.ClockedIn {
		t.Fatalf("state must not change")
	}
}

func TestClockCycle_ConflictRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)

	// 出勤前の退勤は不可
	_, err := f.mgr.ClockOut(ctx, user, ClockInput{})
	var se *StateError
	if !errors.As(err, &se) || se.Code != CodeConflict {
		t.Fatalf("expected CONFLICT for clock-out, got %v", err)
	}

	if _, err := f.mgr.ClockIn(ctx, user, ClockInput{}); err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	// 二重出勤も不可
	if _, err := f.mgr.ClockIn(ctx, user, ClockInput{}); err == nil {
		t.Fatalf("expected conflict on double clock-in")
	}

	// 退勤して1サイクル完了。再出勤は可能。
	res, err := f.mgr.ClockOut(ctx, user, ClockInput{})
	if err != nil || res.Status != StatusClockedOut {
		t.Fatalf("clock-out: res=%+v err=%v", res, err)
	}
	st := f.mgr.Session(user.ID)
	if st.ClockedIn || st.ClockOutAt == nil {
		t.Fatalf("unexpected state after clock-out: %+v", st)
	}
	if _, err := f.mgr.ClockIn(ctx, user, ClockInput{}); err != nil {
		t.Fatalf("restart cycle: %v", err)
	}
}

func TestClockOut_OfflineKeepsVerifiedZoneName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)

	if _, err := f.mgr.ClockIn(ctx, user, ClockInput{}); err != nil {
		t.Fatalf("clock-in: %v", err)
	}

	// 勤務中にオフラインへ落ちた後の退勤
	f.conn.online = false
	res, err := f.mgr.ClockOut(ctx, user, ClockInput{})
	if err != nil || !res.Offline {
		t.Fatalf("offline clock-out: res=%+v err=%v", res, err)
	}

	recs, _ := f.queue.Records(ctx, user.ID)
	var out *offline.Record
	for i := range recs {
		if recs[i].Kind == offline.KindClockOut {
			out = &recs[i]
		}
	}
	if out == nil || out.LocationName != "Main Office" {
		t.Fatalf("expected last verified zone name on offline record, got %+v", out)
	}
}

func TestManager_DeterministicClock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)
	f.conn.online = false

	fixed := time.UnixMilli(1700000123456)
	f.mgr.SetClock(fixedClock{fixed})

	res, err := f.mgr.ClockIn(ctx, user, ClockInput{})
	if err != nil {
		t.Fatalf("clock-in: %v", err)
	}
	if res.Timestamp != fixed.UnixMilli() {
		t.Fatalf("timestamp = %d, want %d", res.Timestamp, fixed.UnixMilli())
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestClockIn_ClientSuppliedPositionWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)
	// Locator は圏外を返すが、クライアント添付の座標が優先される
	f.locator.point = farAway

	res, err := f.mgr.ClockIn(ctx, user, ClockInput{Position: &insideMainOffice})
	if err != nil {
		t.Fatalf("clock-in with position: %v", err)
	}
	if res.Status != StatusClockedIn || res.Zone == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// blockingLocator: release が閉じるまで返らない（位置取得ハングの再現）
type blockingLocator struct {
	entered chan struct{}
	release chan struct{}
}

func (l *blockingLocator) Current(ctx context.Context) (geofence.GeoPoint, error) {
	close(l.entered)
	select {
	case <-l.release:
		return insideMainOffice, nil
	case <-ctx.Done():
		return geofence.GeoPoint{}, ctx.Err()
	}
}

func TestClockIn_HungLocatorDoesNotBlockOtherUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true, LocationTimeout: 30 * time.Second}, false)

	loc := &blockingLocator{entered: make(chan struct{}), release: make(chan struct{})}
	f.mgr.locator = loc
	defer close(loc.release)

	// ユーザAは位置取得でハングしたまま
	go func() {
		_, _ = f.mgr.ClockIn(ctx, User{ID: "emp-A", Name: "A"}, ClockInput{})
	}()
	<-loc.entered // A が Locator 内（= 自分のセッションロック保持中）に入るまで待つ

	// ユーザBは座標添付なので Locator に触らない。Aに巻き込まれず即応するはず。
	type result struct {
		res ClockResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := f.mgr.ClockIn(ctx, User{ID: "emp-B", Name: "B"}, ClockInput{Position: &insideMainOffice})
		done <- result{res, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("clock-in for B: %v", r.err)
		}
		if r.res.Status != StatusClockedIn {
			t.Fatalf("unexpected result for B: %+v", r.res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("user B's clock-in blocked behind user A's hung location lookup")
	}

	// A がハング中でも B の Session は読める
	if st := f.mgr.Session("emp-B"); !st.ClockedIn {
		t.Fatalf("expected B clocked in, got %+v", st)
	}
}

func TestClockIn_UnsupportedLocator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{TrustOnDisconnect: true}, false)
	f.mgr.locator = UnsupportedLocator{}

	_, err := f.mgr.ClockIn(ctx, user, ClockInput{})
	var se *StateError
	if !errors.As(err, &se) || se.Code != CodeLocationUnavailable {
		t.Fatalf("expected LOCATION_UNAVAILABLE, got %v", err)
	}
}
