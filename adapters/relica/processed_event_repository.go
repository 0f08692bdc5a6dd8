package relica

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/relica"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/model"
)

// ProcessedEventRepository implements catalog.ProcessedEventRepository using Relica.
type ProcessedEventRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewProcessedEventRepository creates a new ProcessedEventRepository with default table prefix.
func NewProcessedEventRepository(sqlDB *sql.DB, driverName string) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "catalog_"}
}

// NewProcessedEventRepositoryWithPrefix creates a new ProcessedEventRepository with custom table prefix.
func NewProcessedEventRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *ProcessedEventRepository) tableName() string {
	return r.tablePrefix + "processed_event"
}

// Exists reports whether the event ID has already been processed.
func (r *ProcessedEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Select("COUNT(*)").
		From(r.tableName()).
		Where("event_id = ?", eventID).
		One(&count)
	if err != nil {
		return false, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to check processed event", err)
	}
	return count > 0, nil
}

// Save records an event ID as processed.
func (r *ProcessedEventRepository) Save(ctx context.Context, p *model.ProcessedEvent) (*model.ProcessedEvent, error) {
	err := r.db.WithContext(ctx).Model(p).Table(r.tableName()).Insert()
	if err != nil {
		return p, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to insert processed event", err)
	}
	return p, nil
}

// DeleteOlderThan removes ledger entries older than the threshold.
// Entries are deleted one by one so a single bad row cannot block the prune.
func (r *ProcessedEventRepository) DeleteOlderThan(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := time.Now().Add(-threshold)

	var stale []model.ProcessedEvent
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("processed_at < ?", cutoff).
		All(&stale)
	if err != nil {
		return 0, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to find stale processed events", err)
	}

	deleted := 0
	for i := range stale {
		if err := r.db.WithContext(ctx).Model(&stale[i]).Table(r.tableName()).Delete(); err != nil {
			continue
		}
		deleted++
	}
	return deleted, nil
}
