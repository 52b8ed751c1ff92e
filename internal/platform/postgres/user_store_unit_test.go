package postgres

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPostgresUserStore(t *testing.T) {
	db := &sql.DB{}

	tests := []struct {
		name         string
		cost         int
		expectedCost int
	}{
		{"valid cost", 10, 10},
		{"minimum cost", bcrypt.MinCost, bcrypt.MinCost},
		{"maximum cost", bcrypt.MaxCost, bcrypt.MaxCost},
		{"too low falls back to default", bcrypt.MinCost - 1, bcrypt.DefaultCost},
		{"too high falls back to default", bcrypt.MaxCost + 1, bcrypt.DefaultCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPostgresUserStore(db, tt.cost)
			assert.Equal(t, db, s.db)
			assert.Equal(t, tt.expectedCost, s.bcryptCost)
		})
	}
}

func TestStoreConstructorsRejectNilDB(t *testing.T) {
	assert.Panics(t, func() { NewPostgresUserStore(nil, bcrypt.MinCost) })
	assert.Panics(t, func() { NewPostgresTaskStore(nil, nil) })
	assert.Panics(t, func() { NewPostgresRevocationStore(nil, nil) })
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := Migrations.ReadDir(MigrationsDir)
	assert.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"20250101000001_create_users_table.sql",
		"20250101000002_create_tasks_table.sql",
		"20250101000003_create_revoked_tokens_table.sql",
	}, names)
}
