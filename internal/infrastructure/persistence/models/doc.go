// Package models contains the GORM table definitions behind the entity stores.
//
// Stores never read or write these structs directly: rows are written as a
// JSON payload plus promoted columns. The models exist so the schema can be
// created with AutoMigrate in tests and embedded deployments, and kept in
// step with the SQL migrations used in production.
package models
