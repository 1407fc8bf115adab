package medcerts

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

type SubmitCertRequest struct {
	FileName  string `json:"file_name" binding:"required"`
	IssueDate string `json:"issue_date" binding:"required"` // YYYY-MM-DD
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Doctor    string `json:"doctor,omitempty"`
	Hospital  string `json:"hospital,omitempty"`
	LeaveID   string `json:"leave_id,omitempty"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// Notifier: 審査結果のユーザ通知（notifications 側）
type Notifier interface {
	Push(ctx context.Context, userID, title, body string) error
}

// Service: 診断書の提出と審査。medicalCertificates コレクションを正とし、
// 提出時は leaves 同様にオフラインアクションも積む。
type Service struct {
	store    kvstore.Store
	queue    *offline.Queue
	notifier Notifier
}

func NewService(store kvstore.Store, queue *offline.Queue, notifier Notifier) *Service {
	return &Service{store: store, queue: queue, notifier: notifier}
}

func (s *Service) Submit(ctx context.Context, userID, userName string, req SubmitCertRequest) (Certificate, error) {
	if req.FileName == "" {
		return Certificate{}, ErrInvalid("file_name is required")
	}
	issued, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		return Certificate{}, ErrInvalid("issue_date must be YYYY-MM-DD")
	}
	now := time.Now()
	if issued.After(now.AddDate(0, 0, 1)) {
		return Certificate{}, ErrInvalid("issue_date must not be in the future")
	}

	cert := Certificate{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		FileName:  req.FileName,
		SizeBytes: req.SizeBytes,
		IssueDate: req.IssueDate,
		Doctor:    req.Doctor,
		Hospital:  req.Hospital,
		LeaveID:   req.LeaveID,
		Status:    StatusPending,
		CreatedAt: now.UnixMilli(),
	}

	if err := s.store.Add(ctx, kvstore.CollectionMedCertificates, cert.ID, cert); err != nil {
		return Certificate{}, ErrInternal(err.Error())
	}
	if _, err := s.queue.Enqueue(ctx, offline.KindMedCertificate, cert); err != nil {
		return Certificate{}, ErrInternal(err.Error())
	}
	return cert, nil
}

// List: userID 空なら全件（admin 用）。提出の新しい順。
func (s *Service) List(ctx context.Context, userID string) ([]Certificate, error) {
	raws, err := s.store.GetAll(ctx, kvstore.CollectionMedCertificates)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	out := make([]Certificate, 0, len(raws))
	for _, raw := range raws {
		var c Certificate
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, ErrInternal(err.Error())
		}
		if userID == "" || c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// UpdateStatus: 管理者の審査。pending 以外からの変更は拒否する。
// 結果はユーザ宛に通知する（通知失敗で審査自体は巻き戻さない）。
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Certificate, error) {
	if status != StatusApproved && status != StatusRejected {
		return Certificate{}, ErrInvalid("status must be approved or rejected")
	}

	var cert Certificate
	found, err := s.store.GetByKey(ctx, kvstore.CollectionMedCertificates, id, &cert)
	if err != nil {
		return Certificate{}, ErrInternal(err.Error())
	}
	if !found {
		return Certificate{}, ErrNotFound("certificate not found: " + id)
	}
	if cert.Status != StatusPending {
		return Certificate{}, ErrConflict("certificate already " + string(cert.Status))
	}

	cert.Status = status
	if err := s.store.Update(ctx, kvstore.CollectionMedCertificates, cert.ID, cert); err != nil {
		return Certificate{}, ErrInternal(err.Error())
	}

	if s.notifier != nil {
		body := "Your medical certificate " + cert.FileName + " was " + string(status) + "."
		if err := s.notifier.Push(ctx, cert.UserID, "Medical certificate "+string(status), body); err != nil {
			log.Printf("[WARN] medcerts: notify %s failed: %v", cert.UserID, err)
		}
	}
	return cert, nil
}
