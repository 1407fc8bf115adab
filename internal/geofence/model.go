package geofence

import "fmt"

// GeoPoint: 端末の位置情報APIが返す1点。検証1回ごとに使い捨て。
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Zone: 管理者が設定する円形ジオフェンス（中心 + 半径）。
// コアからは読み取り専用。
type Zone struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	ColorTag     int     `json:"color_tag"`
}

func (z Zone) Center() GeoPoint {
	return GeoPoint{Latitude: z.Latitude, Longitude: z.Longitude}
}

func (z Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone id is required")
	}
	if z.Name == "" {
		return fmt.Errorf("zone name is required")
	}
	if z.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters must be > 0")
	}
	if z.Latitude < -90 || z.Latitude > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if z.Longitude < -180 || z.Longitude > 180 {
		return fmt.Errorf("longitude out of range")
	}
	return nil
}
