package zones

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/j1a5h3ng/attendance-app/internal/geofence"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

// Service: ゾーン台帳。kvstore の zones コレクションを正とする。
// コア（session）へは ActiveZones で読み取り専用に供給する。
type Service struct {
	store          kvstore.Store
	defaultRadiusM float64
}

func NewService(store kvstore.Store, defaultRadiusM float64) *Service {
	if defaultRadiusM <= 0 {
		defaultRadiusM = 100
	}
	return &Service{store: store, defaultRadiusM: defaultRadiusM}
}

// 全角半角・結合文字のゆらぎを潰してから保存する
func normalizeName(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

func (s *Service) load(ctx context.Context) ([]Zone, error) {
	raws, err := s.store.GetAll(ctx, kvstore.CollectionZones)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	out := make([]Zone, 0, len(raws))
	for _, raw := range raws {
		var z Zone
		if err := json.Unmarshal(raw, &z); err != nil {
			return nil, ErrInternal(err.Error())
		}
		out = append(out, z)
	}
	// GetAll は順序未定義なので作成順に並べ直す。
	// MatchZone の先勝ちがこの順に依存する。
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ActiveZones: session.ZoneSource 実装。無効化ゾーンは除く。
func (s *Service) ActiveZones(ctx context.Context) ([]geofence.Zone, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]geofence.Zone, 0, len(all))
	for _, z := range all {
		if !z.Disabled {
			out = append(out, z.Zone)
		}
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]ZoneResponse, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ZoneResponse, 0, len(all))
	for _, z := range all {
		out = append(out, z.toDTO())
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (ZoneResponse, error) {
	var z Zone
	found, err := s.store.GetByKey(ctx, kvstore.CollectionZones, id, &z)
	if err != nil {
		return ZoneResponse{}, ErrInternal(err.Error())
	}
	if !found {
		return ZoneResponse{}, ErrNotFound("zone not found: " + id)
	}
	return z.toDTO(), nil
}

func (s *Service) Create(ctx context.Context, req CreateZoneRequest) (ZoneResponse, error) {
	radius := s.defaultRadiusM
	if req.RadiusMeters != nil {
		radius = *req.RadiusMeters
	}

	all, err := s.load(ctx)
	if err != nil {
		return ZoneResponse{}, err
	}
	colorTag := len(all) % colorPaletteSize
	if req.ColorTag != nil {
		colorTag = *req.ColorTag
	}

	z := Zone{
		Zone: geofence.Zone{
			ID:           uuid.NewString(),
			Name:         normalizeName(req.Name),
			Latitude:     req.Latitude,
			Longitude:    req.Longitude,
			RadiusMeters: radius,
			ColorTag:     colorTag,
		},
		CreatedAt: nowMilli(),
	}
	if err := z.Validate(); err != nil {
		return ZoneResponse{}, ErrInvalid(err.Error())
	}

	if err := s.store.Add(ctx, kvstore.CollectionZones, z.ID, z); err != nil {
		if errors.Is(err, kvstore.ErrDuplicateKey) {
			return ZoneResponse{}, ErrConflict("zone already exists: " + z.ID)
		}
		return ZoneResponse{}, ErrInternal(err.Error())
	}
	return z.toDTO(), nil
}

// Register: needs_zone_registration 応答からの新ゾーン起こし。既定半径を使う。
func (s *Service) Register(ctx context.Context, req RegisterZoneRequest) (ZoneResponse, error) {
	return s.Create(ctx, CreateZoneRequest{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
}

func (s *Service) Update(ctx context.Context, id string, req UpdateZoneRequest) (ZoneResponse, error) {
	var z Zone
	found, err := s.store.GetByKey(ctx, kvstore.CollectionZones, id, &z)
	if err != nil {
		return ZoneResponse{}, ErrInternal(err.Error())
	}
	if !found {
		return ZoneResponse{}, ErrNotFound("zone not found: " + id)
	}

	if req.Name != nil {
		z.Name = normalizeName(*req.Name)
	}
	if req.Latitude != nil {
		z.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		z.Longitude = *req.Longitude
	}
	if req.RadiusMeters != nil {
		z.RadiusMeters = *req.RadiusMeters
	}
	if req.ColorTag != nil {
		z.ColorTag = *req.ColorTag
	}
	if req.Disabled != nil {
		z.Disabled = *req.Disabled
	}
	if err := z.Validate(); err != nil {
		return ZoneResponse{}, ErrInvalid(err.Error())
	}

	if err := s.store.Update(ctx, kvstore.CollectionZones, z.ID, z); err != nil {
		return ZoneResponse{}, ErrInternal(err.Error())
	}
	return z.toDTO(), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	var z Zone
	found, err := s.store.GetByKey(ctx, kvstore.CollectionZones, id, &z)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if !found {
		return ErrNotFound("zone not found: " + id)
	}
	if err := s.store.Delete(ctx, kvstore.CollectionZones, id); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

// Seed: config.yaml の初期ゾーンを投入する。既存IDはそのまま残す（冪等）。
func (s *Service) Seed(ctx context.Context, seeds []geofence.Zone) error {
	for i, seed := range seeds {
		z := Zone{Zone: seed, CreatedAt: nowMilli() + int64(i)}
		z.Name = normalizeName(z.Name)
		if z.ColorTag == 0 {
			z.ColorTag = i % colorPaletteSize
		}
		if err := z.Validate(); err != nil {
			return ErrInvalid(err.Error())
		}
		err := s.store.Add(ctx, kvstore.CollectionZones, z.ID, z)
		if errors.Is(err, kvstore.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return ErrInternal(err.Error())
		}
	}
	return nil
}
