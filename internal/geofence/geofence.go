package geofence

import "math"

// 地球半径 [m]
const earthRadiusMeters = 6371000.0

// DistanceMeters: 2点間の大円距離（ハーバサイン公式）。純関数。
func DistanceMeters(p1, p2 GeoPoint) float64 {
	phi1 := p1.Latitude * math.Pi / 180
	phi2 := p2.Latitude * math.Pi / 180
	dPhi := (p2.Latitude - p1.Latitude) * math.Pi / 180
	dLambda := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// MatchZone: point を含む最初のゾーンを返す（入力順で先勝ち）。無ければ nil。
//
// ゾーンが重なる場合はリスト順で解決し、中心までの最近傍は見ない。
// 既知の制限としてそう決めている（ゾーン数は高々数件の想定）。
func MatchZone(point GeoPoint, zones []Zone) *Zone {
	for i := range zones {
		if Verify(point, zones[i]) {
			return &zones[i]
		}
	}
	return nil
}

// Verify: 単一ゾーンに対する内外判定
func Verify(point GeoPoint, zone Zone) bool {
	return DistanceMeters(point, zone.Center()) <= zone.RadiusMeters
}
