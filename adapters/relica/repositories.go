package relica

import (
	"database/sql"

	"github.com/shelfstream/catalog"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Book           catalog.BookRepository
	User           catalog.UserRepository
	Notification   catalog.NotificationRepository
	ProcessedEvent catalog.ProcessedEventRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "catalog_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return &Repositories{
		Book:           NewBookRepository(db, driverName),
		User:           NewUserRepository(db, driverName),
		Notification:   NewNotificationRepository(db, driverName),
		ProcessedEvent: NewProcessedEventRepository(db, driverName),
	}
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Book:           NewBookRepositoryWithPrefix(db, driverName, prefix),
		User:           NewUserRepositoryWithPrefix(db, driverName, prefix),
		Notification:   NewNotificationRepositoryWithPrefix(db, driverName, prefix),
		ProcessedEvent: NewProcessedEventRepositoryWithPrefix(db, driverName, prefix),
	}
}
