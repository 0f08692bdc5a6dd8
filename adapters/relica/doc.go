// Package relica provides repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package provides production-ready implementations of all catalog repository interfaces:
//   - BookRepository
//   - UserRepository
//   - NotificationRepository
//   - ProcessedEventRepository
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/shelfstream/catalog"
//	    "github.com/shelfstream/catalog/adapters/relica"
//	    _ "github.com/go-sql-driver/mysql"
//	)
//
//	// Open database connection
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/catalog_db?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create repositories (driverName should be "mysql", "postgres", or "sqlite3")
//	repos := relica.NewRepositories(db, "mysql")
//
//	// Create services
//	books, err := catalog.NewBookService(
//	    catalog.WithBookRepository(repos.Book),
//	    catalog.WithBookEventPublisher(publisher),
//	    catalog.WithBookServiceLogger(logger),
//	)
package relica
