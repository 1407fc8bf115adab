package attendance

const (
	SortTimestampDesc = "timestamp_desc"
	SortTimestampAsc  = "timestamp_asc"
	DefaultPageLimit  = 50
	MaxPageLimit      = 200
	DefaultSort       = SortTimestampDesc
)

// ClockRequest: 打刻リクエスト。user は JWT から取るので body には載せない。
type ClockRequest struct {
	Platform       string   `json:"platform,omitempty"`         // 端末自己申告
	SelectedZoneID *string  `json:"selected_zone_id,omitempty"` // 手動ゾーン選択
	Latitude       *float64 `json:"latitude,omitempty"`         // クライアント取得済みの現在位置
	Longitude      *float64 `json:"longitude,omitempty"`
}

type ClockResponse struct {
	Status    string   `json:"status"` // clocked_in | clocked_out | needs_zone_registration
	RecordID  string   `json:"record_id,omitempty"`
	ActionID  string   `json:"action_id,omitempty"`
	ZoneID    string   `json:"zone_id,omitempty"`
	ZoneName  string   `json:"zone_name,omitempty"`
	Offline   bool     `json:"offline"`
	Timestamp int64    `json:"timestamp,omitempty"` // epoch ms
	Latitude  *float64 `json:"latitude,omitempty"`  // needs_zone_registration 時の現在地
	Longitude *float64 `json:"longitude,omitempty"`
}

type RecordResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	Kind         string `json:"kind"`
	Timestamp    int64  `json:"timestamp"`
	LocationName string `json:"location_name"`
	Synced       bool   `json:"synced"`
}

type ListQuery struct {
	UserID string
	From   *int64 // epoch ms
	To     *int64
	Limit  int
	Offset int
	Sort   string
}

type SyncResponse struct {
	Outcome string `json:"outcome"`
	Synced  int    `json:"synced"`
	Failed  int    `json:"failed"`
	RunID   string `json:"run_id"`
}

type PendingCountResponse struct {
	Pending int `json:"pending"`
}

type ConnectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

type SessionResponse struct {
	ClockedIn  bool   `json:"clocked_in"`
	ClockInAt  *int64 `json:"clock_in_at,omitempty"`  // epoch ms
	ClockOutAt *int64 `json:"clock_out_at,omitempty"` // epoch ms
	ZoneID     string `json:"zone_id,omitempty"`
	ZoneName   string `json:"zone_name,omitempty"`
}

type StatsRow struct {
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}
