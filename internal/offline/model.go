package offline

import (
	"encoding/json"

	"github.com/j1a5h3ng/attendance-app/internal/geofence"
)

// Kind: 打刻イベント種別
type Kind string

const (
	KindClockIn        Kind = "clockIn"
	KindClockOut       Kind = "clockOut"
	KindLeaveRequest   Kind = "leaveRequest"
	KindMedCertificate Kind = "medicalCertificate"
	KindOther          Kind = "other"
)

func (k Kind) IsClock() bool {
	return k == KindClockIn || k == KindClockOut
}

type DeviceInfo struct {
	UserAgent string `json:"user_agent"`
	Platform  string `json:"platform"`
}

// Record: 打刻レコード。作成後は synced フラグ（false→true を1回だけ）以外不変。
// 未同期の間は attendanceRecords コレクションが唯一の所有者。
type Record struct {
	ID           string             `json:"id"` // UUID v4
	UserID       string             `json:"user_id"`
	UserName     string             `json:"user_name"`
	Kind         Kind               `json:"kind"` // clockIn | clockOut
	Timestamp    int64              `json:"timestamp"` // epoch ms
	LocationName string             `json:"location_name"`
	RawLocation  *geofence.GeoPoint `json:"raw_location,omitempty"`
	DeviceInfo   DeviceInfo         `json:"device_info"`
	Synced       bool               `json:"synced"`
}

// Action: 永続キューの1エントリ。clockIn/clockOut の場合 Payload は Record。
// 追記専用の監査ログであり削除しない（同期済みエントリの保持期間は未決）。
type Action struct {
	ID         string          `json:"id"` // UUID v4
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt int64           `json:"enqueued_at"` // epoch ms
	Synced     bool            `json:"synced"`
}

// RecordPayload: clock 系アクションの Payload を復元する
func (a Action) RecordPayload() (Record, error) {
	var r Record
	err := json.Unmarshal(a.Payload, &r)
	return r, err
}
