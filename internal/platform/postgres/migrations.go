package postgres

import "embed"

// MigrationTableName is the goose version table used by every migration runner.
const MigrationTableName = "schema_migrations"

// Migrations holds the goose SQL migrations, rooted at "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose should read.
const MigrationsDir = "migrations"
