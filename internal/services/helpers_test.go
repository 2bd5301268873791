package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/isdelr/inventory-tracker/internal/database"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newTestUserService(db *sql.DB) *UserService {
	s := NewUserService(db)
	s.bcryptCost = bcrypt.MinCost
	return s
}

func mustRegister(t *testing.T, s *UserService, username, email string) int64 {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{
		Username: username, Email: email, Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	return u.ID
}
