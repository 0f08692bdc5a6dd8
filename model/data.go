// Package model contains all domain models and data structures for the book
// catalog system.
package model

// tablePrefix is prepended to every table name returned by TableName.
// Must match the table names created by the SQL migrations.
const tablePrefix = "catalog_"

// Attributes represents a map of key-value pairs attached to an outbound
// event as transport-level metadata (message headers).
type Attributes map[string]string
