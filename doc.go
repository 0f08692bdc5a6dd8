// Package catalog provides a book catalog service with event-driven
// notifications: validated CRUD over a relational store, at-least-once
// event publishing to Kafka, and a consumer that turns those events into
// user-facing notifications.
//
// Works both as a library for embedding in your application AND as a
// standalone microservice with REST API.
//
// # Features
//
//   - ISBN-10/ISBN-13 validation with checksum verification
//   - Rich Book domain model with soft delete (ISBN uniqueness scoped to active rows)
//   - At-least-once event publishing with linear backoff retry
//   - Event consumer with per-event-type notification templates and
//     event-ID deduplication
//   - Domain-Driven Design with rich domain models containing business logic
//   - Repository Pattern for clean data access abstraction
//   - Options Pattern for modern Go API design
//   - Pluggable architecture: bring your own Logger, NotificationSink, BrokerGateway
//   - Multi-Database Support: MySQL, PostgreSQL, SQLite via Relica adapters
//   - Embedded Migrations for easy database setup
//   - Cloud Native: 12-factor app, ENV config, health checks
//
// # Quick Start
//
// First, apply the database migrations:
//
//	import (
//	    "database/sql"
//	    "github.com/shelfstream/catalog"
//	    "github.com/shelfstream/catalog/adapters/relica"
//	    _ "github.com/go-sql-driver/mysql"
//	)
//
//	// Connect to database
//	db, _ := sql.Open("mysql", "user:pass@tcp(localhost:3306)/catalog?parseTime=true")
//
//	// Apply embedded migrations
//	if err := catalog.ApplyMigrations(db, "mysql"); err != nil {
//	    log.Fatal(err)
//	}
//
// Use production-ready Relica adapters:
//
//	// Create all repositories at once
//	repos := relica.NewRepositories(db, "mysql")
//
//	// Create services with Options Pattern
//	publisher, _ := catalog.NewPublisher(
//	    catalog.WithPublisherGateway(gateway),
//	    catalog.WithPublisherLogger(logger),
//	)
//
//	books, _ := catalog.NewBookService(
//	    catalog.WithBookRepository(repos.Book),
//	    catalog.WithBookEventPublisher(publisher),
//	    catalog.WithBookServiceLogger(logger),
//	)
//
// Create a book:
//
//	book, err := books.Create(ctx, correlationID, model.BookInput{
//	    Title:         "The Go Programming Language",
//	    Author:        "Alan A. A. Donovan",
//	    ISBN:          "978-0-13-468599-1",
//	    PublishedDate: published,
//	})
//
// # Architecture
//
// The library follows Clean Architecture and Domain-Driven Design principles:
//
//	┌─────────────────────────────────────┐
//	│         Application Layer           │
//	│  (BookService, Publisher,           │
//	│   EventConsumer, REST API)          │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│         Domain Layer                │
//	│  (Rich models with business logic)  │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│   Relica / Kafka Adapters           │
//	│  (Production-ready implementations) │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│  Database (MySQL/PostgreSQL/SQLite) │
//	│  Kafka (sarama)                     │
//	└─────────────────────────────────────┘
//
// Key principles:
//   - Domain models contain business logic (Book.Replace, Book.Deactivate, etc.)
//   - Repository Pattern abstracts database operations
//   - Dependency Inversion via interfaces (Logger, NotificationSink, BrokerGateway)
//   - Options Pattern for service configuration
//
// # Event Flow
//
//  1. WRITE
//     BookService → validate input → persist book
//     → build event envelope (event ID assigned once)
//     → publish with retry in the background
//
//  2. PUBLISH
//     Publisher → serialize envelope
//     → send to "book-events" with routing key
//     {sourceService}.{aggregateType}.{eventType}
//     → on failure: linear backoff (attempt × base delay), then RETRY_EXHAUSTED
//
//  3. CONSUME
//     EventConsumer → deserialize → skip already-processed event IDs
//     → build notification from per-event-type template
//     → persist and dispatch to sink → record event ID
//     → undecodable payloads go to the dead-letterer
//
// # Database Schema
//
// The library requires 4 database tables (created via embedded migrations):
//
//	catalog_book             - Book catalog with soft delete
//	catalog_user             - API accounts with argon2id password hashes
//	catalog_notification     - Notifications produced by the consumer
//	catalog_processed_event  - Consumer idempotency ledger
//
// Supports MySQL, PostgreSQL, and SQLite via Relica adapters.
//
// For detailed documentation, see README.md and pkg.go.dev.
package catalog
