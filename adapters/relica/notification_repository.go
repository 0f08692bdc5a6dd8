package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/model"
)

// NotificationRepository implements catalog.NotificationRepository using Relica.
type NotificationRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewNotificationRepository creates a new NotificationRepository with default table prefix.
func NewNotificationRepository(sqlDB *sql.DB, driverName string) *NotificationRepository {
	return &NotificationRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "catalog_"}
}

// NewNotificationRepositoryWithPrefix creates a new NotificationRepository with custom table prefix.
func NewNotificationRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *NotificationRepository {
	return &NotificationRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *NotificationRepository) tableName() string {
	return r.tablePrefix + "notification"
}

// Save persists a new notification.
func (r *NotificationRepository) Save(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	err := r.db.WithContext(ctx).Model(n).Table(r.tableName()).Insert()
	if err != nil {
		return n, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to insert notification", err)
	}
	return n, nil
}

// FindByEventID retrieves the notification produced for an event.
func (r *NotificationRepository) FindByEventID(ctx context.Context, eventID string) (model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("event_id = ?", eventID).
		One(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return n, catalog.ErrNoData
	}
	if err != nil {
		return n, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to find notification by event ID", err)
	}
	return n, nil
}

// FindRecent retrieves the most recent notifications.
func (r *NotificationRepository) FindRecent(ctx context.Context, limit int) ([]model.Notification, error) {
	var notifications []model.Notification
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		OrderBy("created_at DESC").
		Limit(int64(limit)).
		All(&notifications)
	if err != nil {
		return nil, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to find recent notifications", err)
	}
	if len(notifications) == 0 {
		return nil, catalog.ErrNoData
	}
	return notifications, nil
}
