package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/model"
)

// Store persists in-app notifications and resolves recipients.
type Store interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	Recipient(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListNotifications(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, recipientID uuid.UUID, id uint, at time.Time) error
}

// GormStore is the database backed Store.
type GormStore struct {
	DB *gorm.DB
}

// CreateNotification inserts n.
func (s GormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	return s.DB.WithContext(ctx).Create(n).Error
}

// Recipient loads the user with id.
func (s GormStore) Recipient(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListNotifications returns notifications of recipientID, newest first.
func (s GormStore) ListNotifications(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]model.Notification, error) {
	var out []model.Notification
	q := s.DB.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flags one notification of recipientID as read. A notification of
// another user reads as not found.
func (s GormStore) MarkRead(ctx context.Context, recipientID uuid.UUID, id uint, at time.Time) error {
	res := s.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]interface{}{"read": true, "read_at": gorm.Expr("COALESCE(read_at, ?)", at)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.New(apperror.KindNotFound, "Notification not found")
	}
	return nil
}

// errUnknownRecipient reports a notification for a user that does not exist.
var errUnknownRecipient = errors.New("unknown recipient")
