package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tractorbid/internal/models"
	"tractorbid/internal/repository"
)

// Service records every event in the notifications outbox and pushes it to
// the provider when one is configured. Both steps are best-effort: failures
// are logged and swallowed, never surfaced to the caller. A committed bid
// must stand no matter what happens here.
type Service struct {
	Repo   repository.Repository
	Sender Sender
	Logger *zap.Logger

	// SendTimeout bounds the provider call; the caller's request context
	// may already be gone by the time this runs post-commit.
	SendTimeout time.Duration
}

func (s *Service) Notify(ctx context.Context, userID, auctionID uint64, kind, message string, payload map[string]any) {
	if s == nil || userID == 0 {
		return
	}

	if payload == nil {
		payload = map[string]any{}
	}
	payload["message"] = message
	raw, err := json.Marshal(payload)
	if err != nil {
		s.warn("notification payload marshal failed", kind, err)
		return
	}

	item := &models.Notification{
		Ref:       uuid.NewString(),
		UserID:    userID,
		AuctionID: auctionID,
		Kind:      kind,
		Payload:   datatypes.JSON(raw),
		Status:    "pending",
	}
	if s.Repo != nil {
		if err := s.Repo.InsertNotification(ctx, item); err != nil {
			s.warn("notification outbox insert failed", kind, err)
			return
		}
	}

	if s.Sender == nil {
		return
	}

	timeout := s.SendTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err = s.Sender.Send(sendCtx, SendRequest{
		UserID:  userID,
		Kind:    kind,
		Message: message,
		Payload: payload,
	})
	if s.Repo != nil {
		if err != nil {
			_ = s.Repo.MarkNotificationFailed(sendCtx, item.ID, err.Error())
		} else {
			_ = s.Repo.MarkNotificationSent(sendCtx, item.ID, time.Now().UTC())
		}
	}
	if err != nil {
		s.warn("notification send failed", kind, err)
	}
}

func (s *Service) warn(msg, kind string, err error) {
	if s.Logger != nil {
		s.Logger.Warn(msg, zap.String("kind", kind), zap.Error(err))
	}
}
