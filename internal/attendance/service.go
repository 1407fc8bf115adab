package attendance

import (
	"context"
	"sort"

	"github.com/j1a5h3ng/attendance-app/internal/connectivity"
	"github.com/j1a5h3ng/attendance-app/internal/geofence"
	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/session"
	"github.com/j1a5h3ng/attendance-app/internal/syncer"
)

// Service: 打刻コアのHTTP向けファサード。
// 状態機械・キュー・同期は注入されたものを使うだけで、自前の状態は持たない。
type Service struct {
	sessions *session.Manager
	coord    *syncer.Coordinator
	queue    *offline.Queue
	conn     *connectivity.Monitor
}

func NewService(sessions *session.Manager, coord *syncer.Coordinator, queue *offline.Queue, conn *connectivity.Monitor) *Service {
	return &Service{sessions: sessions, coord: coord, queue: queue, conn: conn}
}

func clockResponse(res session.ClockResult) ClockResponse {
	out := ClockResponse{
		Status:    string(res.Status),
		RecordID:  res.RecordID,
		ActionID:  res.ActionID,
		Offline:   res.Offline,
		Timestamp: res.Timestamp,
	}
	if res.Zone != nil {
		out.ZoneID = res.Zone.ID
		out.ZoneName = res.Zone.Name
	}
	if res.Point != nil {
		out.Latitude = &res.Point.Latitude
		out.Longitude = &res.Point.Longitude
	}
	return out
}

// POST /attendance/clock-in
func (s *Service) ClockIn(ctx context.Context, user session.User, req ClockRequest, userAgent string) (ClockResponse, error) {
	res, err := s.sessions.ClockIn(ctx, user, clockInput(req, userAgent))
	if err != nil {
		return ClockResponse{}, fromErr(err)
	}
	return clockResponse(res), nil
}

// POST /attendance/clock-out
func (s *Service) ClockOut(ctx context.Context, user session.User, req ClockRequest, userAgent string) (ClockResponse, error) {
	res, err := s.sessions.ClockOut(ctx, user, clockInput(req, userAgent))
	if err != nil {
		return ClockResponse{}, fromErr(err)
	}
	return clockResponse(res), nil
}

func clockInput(req ClockRequest, userAgent string) session.ClockInput {
	in := session.ClockInput{
		Device: offline.DeviceInfo{UserAgent: userAgent, Platform: req.Platform},
	}
	if req.SelectedZoneID != nil {
		in.SelectedZoneID = *req.SelectedZoneID
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.Position = &geofence.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}
	return in
}

// POST /attendance/sync（再接続時と手動リトライ）
func (s *Service) Sync(ctx context.Context) (SyncResponse, error) {
	res, err := s.coord.Sync(ctx)
	if err != nil {
		return SyncResponse{}, fromErr(err)
	}
	return SyncResponse{
		Outcome: string(res.Outcome),
		Synced:  res.Synced,
		Failed:  res.Failed,
		RunID:   res.RunID,
	}, nil
}

// GET /attendance/pending-count（UIバッジ）
func (s *Service) PendingCount(ctx context.Context) (PendingCountResponse, error) {
	n, err := s.queue.PendingCount(ctx)
	if err != nil {
		return PendingCountResponse{}, fromErr(err)
	}
	return PendingCountResponse{Pending: n}, nil
}

// POST /connectivity: クライアントの online/offline イベントを受けて状態遷移。
// オフライン→オンライン復帰時は Monitor のフック経由で同期が走る。
func (s *Service) SetConnectivity(online bool) {
	s.conn.SetOnline(online)
}

// GET /attendance/session
func (s *Service) Session(userID string) SessionResponse {
	st := s.sessions.Session(userID)
	out := SessionResponse{ClockedIn: st.ClockedIn}
	if st.ClockInAt != nil {
		ms := st.ClockInAt.UnixMilli()
		out.ClockInAt = &ms
	}
	if st.ClockOutAt != nil {
		ms := st.ClockOutAt.UnixMilli()
		out.ClockOutAt = &ms
	}
	if st.VerifiedZone != nil {
		out.ZoneID = st.VerifiedZone.ID
		out.ZoneName = st.VerifiedZone.Name
	}
	return out
}

// GET /attendance/records
func (s *Service) ListRecords(ctx context.Context, q ListQuery) ([]RecordResponse, int64, error) {
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}

	recs, err := s.queue.Records(ctx, q.UserID)
	if err != nil {
		return nil, 0, fromErr(err)
	}

	filtered := recs[:0]
	for _, r := range recs {
		if q.From != nil && r.Timestamp < *q.From {
			continue
		}
		if q.To != nil && r.Timestamp > *q.To {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if q.Sort == SortTimestampAsc {
			if filtered[i].Timestamp != filtered[j].Timestamp {
				return filtered[i].Timestamp < filtered[j].Timestamp
			}
			return filtered[i].ID < filtered[j].ID
		}
		if filtered[i].Timestamp != filtered[j].Timestamp {
			return filtered[i].Timestamp > filtered[j].Timestamp
		}
		return filtered[i].ID > filtered[j].ID
	})

	total := int64(len(filtered))

	// LIMIT/OFFSET
	if q.Offset >= len(filtered) {
		return []RecordResponse{}, total, nil
	}
	filtered = filtered[q.Offset:]
	if len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}

	out := make([]RecordResponse, 0, len(filtered))
	for _, r := range filtered {
		out = append(out, RecordResponse{
			ID:           r.ID,
			UserID:       r.UserID,
			UserName:     r.UserName,
			Kind:         string(r.Kind),
			Timestamp:    r.Timestamp,
			LocationName: r.LocationName,
			Synced:       r.Synced,
		})
	}
	return out, total, nil
}

// GET /attendance/stats: 期間内のユーザ別打刻数（多い順 TOP N）
func (s *Service) Stats(ctx context.Context, from, to int64, limit int) ([]StatsRow, error) {
	if to < from {
		return nil, ErrInvalid("to must be >= from")
	}
	if limit <= 0 {
		limit = 10
	}

	recs, err := s.queue.Records(ctx, "")
	if err != nil {
		return nil, fromErr(err)
	}

	counts := make(map[string]int64)
	for _, r := range recs {
		if r.Timestamp >= from && r.Timestamp <= to {
			counts[r.UserID]++
		}
	}

	out := make([]StatsRow, 0, len(counts))
	for id, n := range counts {
		out = append(out, StatsRow{UserID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
