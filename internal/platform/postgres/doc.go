// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package: users, tasks and
// revoked tokens. It also embeds the goose SQL migrations that create the schema.
package postgres
