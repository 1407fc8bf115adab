package zones

type CreateZoneRequest struct {
	Name         string   `json:"name" binding:"required"`
	Latitude     float64  `json:"latitude" binding:"required"`
	Longitude    float64  `json:"longitude" binding:"required"`
	RadiusMeters *float64 `json:"radius_meters,omitempty"` // 省略時は既定半径
	ColorTag     *int     `json:"color_tag,omitempty"`     // 省略時は循環払い出し
}

type UpdateZoneRequest struct {
	Name         *string  `json:"name,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters *float64 `json:"radius_meters,omitempty"`
	ColorTag     *int     `json:"color_tag,omitempty"`
	Disabled     *bool    `json:"disabled,omitempty"`
}

// RegisterZoneRequest: 打刻時の needs_zone_registration に対する確認レスポンス。
// 現在地 + 名前だけで既定半径のゾーンを起こす。
type RegisterZoneRequest struct {
	Name      string  `json:"name" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

type ZoneResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	ColorTag     int     `json:"color_tag"`
	Disabled     bool    `json:"disabled"`
	CreatedAt    int64   `json:"created_at"`
}

func (z Zone) toDTO() ZoneResponse {
	return ZoneResponse{
		ID:           z.ID,
		Name:         z.Name,
		Latitude:     z.Latitude,
		Longitude:    z.Longitude,
		RadiusMeters: z.RadiusMeters,
		ColorTag:     z.ColorTag,
		Disabled:     z.Disabled,
		CreatedAt:    z.CreatedAt,
	}
}
