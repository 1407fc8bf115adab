package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/j1a5h3ng/attendance-app/internal/geofence"
	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/syncer"
)

// ===== 外部コラボレータの抽象 =====

// Locator: 端末の現在位置取得。タイムアウト・権限拒否・非対応はエラーで返す。
// HTTP経由の打刻ではクライアントが座標を添えてくるので ClockInput.Position が
// 優先され、Locator は組み込み用途のフォールバック。
type Locator interface {
	Current(ctx context.Context) (geofence.GeoPoint, error)
}

// UnsupportedLocator: 位置情報非対応環境。常に LocationUnavailable 相当を返す。
type UnsupportedLocator struct{}

func (UnsupportedLocator) Current(_ context.Context) (geofence.GeoPoint, error) {
	return geofence.GeoPoint{}, errors.New("geolocation not supported")
}

// Connectivity: 接続状態の照会（判定自体はコアの外）
type Connectivity interface {
	Online() bool
}

// ZoneSource: 設定済みゾーン一覧の供給元
type ZoneSource interface {
	ActiveZones(ctx context.Context) ([]geofence.Zone, error)
}

// SyncTrigger: オンライン打刻コミット後の便乗同期
type SyncTrigger interface {
	Sync(ctx context.Context) (syncer.Result, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ===== 状態 =====

// State: ユーザ単位の勤務セッション。メモリ上のみで永続化しない。
// 再起動時に打刻レコードから復元はしない（DESIGN.md 参照）。
type State struct {
	ClockedIn    bool           `json:"clocked_in"`
	ClockInAt    *time.Time     `json:"clock_in_at,omitempty"`
	ClockOutAt   *time.Time     `json:"clock_out_at,omitempty"`
	VerifiedZone *geofence.Zone `json:"verified_zone,omitempty"`
}

type User struct {
	ID   string
	Name string
}

type ClockInput struct {
	Device         offline.DeviceInfo
	SelectedZoneID string // ユーザが明示選択したゾーン。空なら全ゾーン走査。
	// Position: クライアントが取得済みの現在位置。nil なら Locator に問い合わせる。
	Position *geofence.GeoPoint
}

type Status string

const (
	StatusClockedIn  Status = "clocked_in"
	StatusClockedOut Status = "clocked_out"
	// 圏外かつ選択ゾーン無し。UIに新ゾーン登録の確認を委ねる（ブロックしない）。
	StatusNeedsZoneRegistration Status = "needs_zone_registration"
)

// ClockResult: 打刻1回分の結果
type ClockResult struct {
	Status    Status             `json:"status"`
	RecordID  string             `json:"record_id,omitempty"`
	ActionID  string             `json:"action_id,omitempty"`
	Zone      *geofence.Zone     `json:"zone,omitempty"`
	Point     *geofence.GeoPoint `json:"point,omitempty"`
	Offline   bool               `json:"offline"`
	Timestamp int64              `json:"timestamp,omitempty"` // epoch ms
}

type Config struct {
	// TrustOnDisconnect: オフライン時はジオフェンス検証を省いて打刻を受ける。
	// 可用性優先の明示的なポリシーであって見落としではない。
	TrustOnDisconnect bool
	// LocationTimeout: 位置取得の上限待ち時間
	LocationTimeout time.Duration
}

const DefaultLocationTimeout = 240 * time.Second

// ===== Manager本体 =====

// userSession: 1ユーザ分の状態とロック。位置取得や便乗同期のI/O中も
// ロックは自ユーザ分しか握らないので、他ユーザの打刻を塞がない。
type userSession struct {
	mu sync.Mutex
	st State
}

// Manager: ClockedOut → ClockedIn → ClockedOut の状態機械。
// ジオフェンス検証を通るかオフライン（trust-on-disconnect）でのみ ClockedIn になる。
type Manager struct {
	mu       sync.Mutex // sessions マップの出し入れのみ保護
	sessions map[string]*userSession

	queue   *offline.Queue
	zones   ZoneSource
	locator Locator
	conn    Connectivity
	sync    SyncTrigger
	clock   Clock
	cfg     Config
}

func NewManager(queue *offline.Queue, zones ZoneSource, locator Locator, conn Connectivity, sync SyncTrigger, cfg Config) *Manager {
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = DefaultLocationTimeout
	}
	return &Manager{
		sessions: make(map[string]*userSession),
		queue:    queue,
		zones:    zones,
		locator:  locator,
		conn:     conn,
		sync:     sync,
		clock:    realClock{},
		cfg:      cfg,
	}
}

// SetClock: テスト用
func (m *Manager) SetClock(c Clock) { m.clock = c }

func (m *Manager) session(userID string) *userSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	us, ok := m.sessions[userID]
	if !ok {
		us = &userSession{}
		m.sessions[userID] = us
	}
	return us
}

// Session: UI表示用のスナップショット
func (m *Manager) Session(userID string) State {
	us := m.session(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.st
}

// ClockIn: 出勤打刻。
// オフライン時は検証なしで受理してキューへ（trust-on-disconnect）。
// オンライン時は現在位置をゾーン照合し、一致した場合のみ遷移する。
func (m *Manager) ClockIn(ctx context.Context, user User, in ClockInput) (ClockResult, error) {
	if user.ID == "" {
		return ClockResult{}, errInvalid("user id is required")
	}

	us := m.session(user.ID)
	us.mu.Lock()
	defer us.mu.Unlock()

	st := &us.st
	if st.ClockedIn {
		return ClockResult{}, errConflict("already clocked in")
	}

	if !m.conn.Online() {
		return m.offlineClock(ctx, user, in, st, offline.KindClockIn)
	}
	return m.onlineClock(ctx, user, in, st, offline.KindClockIn)
}

// ClockOut: 退勤打刻。ClockedIn 中のみ。分岐は ClockIn と対称。
func (m *Manager) ClockOut(ctx context.Context, user User, in ClockInput) (ClockResult, error) {
	if user.ID == "" {
		return ClockResult{}, errInvalid("user id is required")
	}

	us := m.session(user.ID)
	us.mu.Lock()
	defer us.mu.Unlock()

	st := &us.st
	if !st.ClockedIn {
		return ClockResult{}, errConflict("not clocked in")
	}

	if !m.conn.Online() {
		return m.offlineClock(ctx, user, in, st, offline.KindClockOut)
	}
	return m.onlineClock(ctx, user, in, st, offline.KindClockOut)
}

// offlineClock: trust-on-disconnect 経路。ジオフェンス検証なし。
func (m *Manager) offlineClock(ctx context.Context, user User, in ClockInput, st *State, kind offline.Kind) (ClockResult, error) {
	if !m.cfg.TrustOnDisconnect {
		return ClockResult{}, errOfflineRejected("offline clocking is disabled")
	}

	locName := "Unknown Location"
	if st.VerifiedZone != nil {
		locName = st.VerifiedZone.Name
	}

	now := m.clock.Now()
	recID, actID, err := m.queue.EnqueueRecord(ctx, offline.Record{
		UserID:       user.ID,
		UserName:     user.Name,
		Kind:         kind,
		Timestamp:    now.UnixMilli(),
		LocationName: locName,
		DeviceInfo:   in.Device,
	})
	if err != nil {
		// 永続化に失敗したら状態は動かさない
		return ClockResult{}, err
	}

	m.transition(st, kind, now, nil)
	return ClockResult{
		Status:    m.statusOf(kind),
		RecordID:  recID,
		ActionID:  actID,
		Offline:   true,
		Timestamp: now.UnixMilli(),
	}, nil
}

// onlineClock: 位置取得 → ゾーン照合 → コミット → 便乗同期
func (m *Manager) onlineClock(ctx context.Context, user User, in ClockInput, st *State, kind offline.Kind) (ClockResult, error) {
	var point geofence.GeoPoint
	if in.Position != nil {
		point = *in.Position
	} else {
		if m.locator == nil {
			return ClockResult{}, errLocationUnavailable("no position supplied and no locator configured")
		}
		lctx, cancel := context.WithTimeout(ctx, m.cfg.LocationTimeout)
		defer cancel()

		p, err := m.locator.Current(lctx)
		if err != nil {
			// 状態は変えない。ユーザはリトライか手動ゾーン選択へ。
			return ClockResult{}, errLocationUnavailable(err.Error())
		}
		point = p
	}

	zones, err := m.zones.ActiveZones(ctx)
	if err != nil {
		return ClockResult{}, err
	}

	var zone *geofence.Zone
	if in.SelectedZoneID != "" {
		for i := range zones {
			if zones[i].ID == in.SelectedZoneID {
				zone = &zones[i]
				break
			}
		}
		if zone == nil {
			return ClockResult{}, errInvalid("unknown zone: " + in.SelectedZoneID)
		}
		if !geofence.Verify(point, *zone) {
			return ClockResult{}, errVerificationFailed("not within " + zone.Name)
		}
	} else {
		zone = geofence.MatchZone(point, zones)
		if zone == nil {
			if st.VerifiedZone == nil {
				// 新ゾーン登録の確認は UI 側の応答待ち。ここでは遷移しない。
				return ClockResult{Status: StatusNeedsZoneRegistration, Point: &point}, nil
			}
			return ClockResult{}, errVerificationFailed("not within " + st.VerifiedZone.Name)
		}
	}

	now := m.clock.Now()
	recID, actID, err := m.queue.EnqueueRecord(ctx, offline.Record{
		UserID:       user.ID,
		UserName:     user.Name,
		Kind:         kind,
		Timestamp:    now.UnixMilli(),
		LocationName: zone.Name,
		RawLocation:  &point,
		DeviceInfo:   in.Device,
	})
	if err != nil {
		return ClockResult{}, err
	}

	m.transition(st, kind, now, zone)

	// オンラインなのでその場で同期を試みる。失敗しても打刻自体は成立している。
	if m.sync != nil {
		if _, err := m.sync.Sync(ctx); err != nil {
			log.Printf("[WARN] session: opportunistic sync failed: %v", err)
		}
	}

	return ClockResult{
		Status:    m.statusOf(kind),
		RecordID:  recID,
		ActionID:  actID,
		Zone:      zone,
		Point:     &point,
		Timestamp: now.UnixMilli(),
	}, nil
}

func (m *Manager) transition(st *State, kind offline.Kind, now time.Time, zone *geofence.Zone) {
	switch kind {
	case offline.KindClockIn:
		st.ClockedIn = true
		st.ClockInAt = &now
		st.ClockOutAt = nil
	case offline.KindClockOut:
		st.ClockedIn = false
		st.ClockOutAt = &now
	}
	if zone != nil {
		st.VerifiedZone = zone
	}
}

func (m *Manager) statusOf(kind offline.Kind) Status {
	if kind == offline.KindClockIn {
		return StatusClockedIn
	}
	return StatusClockedOut
}
