package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/j1a5h3ng/attendance-app/internal/geofence"
	"github.com/j1a5h3ng/attendance-app/internal/platform/db"
)

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	Certificate Certs  `yaml:"certificate"`
}

type AuthConfig struct {
	Secret string `yaml:"secret"`
}

type AttendanceConfig struct {
	// trust_on_disconnect: オフライン時はジオフェンス検証なしで打刻を受ける
	TrustOnDisconnect bool `yaml:"trust_on_disconnect"`
	// 位置取得の上限待ち秒数（元アプリの 240 秒に合わせた既定）
	LocationTimeoutSeconds int `yaml:"location_timeout_seconds"`
	// ゾーン新規登録時の既定半径 [m]
	DefaultRadiusMeters float64 `yaml:"default_radius_meters"`
}

type ZoneSeed struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

type Config struct {
	Version    string            `yaml:"version"`
	Mode       string            `yaml:"mode"` // dev | release
	Server     ServerConfig      `yaml:"server"`
	DB         db.DatabaseConfig `yaml:"database"`
	Auth       AuthConfig        `yaml:"auth"`
	Attendance AttendanceConfig  `yaml:"attendance"`
	Zones      []ZoneSeed        `yaml:"zones"`
}

func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8443"
	}
	if cfg.Attendance.LocationTimeoutSeconds <= 0 {
		cfg.Attendance.LocationTimeoutSeconds = 240
	}
	if cfg.Attendance.DefaultRadiusMeters <= 0 {
		cfg.Attendance.DefaultRadiusMeters = 100
	}
	return &cfg, nil
}

func (c *Config) LocationTimeout() time.Duration {
	return time.Duration(c.Attendance.LocationTimeoutSeconds) * time.Second
}

// SeedZones: yaml のシードを geofence.Zone へ
func (c *Config) SeedZones() []geofence.Zone {
	out := make([]geofence.Zone, 0, len(c.Zones))
	for _, z := range c.Zones {
		out = append(out, geofence.Zone{
			ID:           z.ID,
			Name:         z.Name,
			Latitude:     z.Latitude,
			Longitude:    z.Longitude,
			RadiusMeters: z.RadiusMeters,
		})
	}
	return out
}
