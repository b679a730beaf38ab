package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mycv/internal/auth"
	"github.com/mrlokans/mycv/internal/config"
	"github.com/mrlokans/mycv/internal/database"
	"github.com/mrlokans/mycv/internal/database/users"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.Database{Driver: config.DatabaseDriverSQLite},
		Auth:     config.Auth{ScryptN: 16},
	}
}

func TestCreateUserCommand_ParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "all flags", args: []string{"-email", "a@b.com", "-password", "pw", "-admin"}},
		{name: "missing email", args: []string{"-password", "pw"}, wantErr: true},
		{name: "missing password", args: []string{"-email", "a@b.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCreateUserCommand(testConfig())
			err := cmd.ParseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@b.com", cmd.Email)
			assert.True(t, cmd.Admin)
		})
	}
}

func TestCreateUserCommand_Run(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	cmd := NewCreateUserCommand(testConfig())
	require.NoError(t, cmd.ParseFlags([]string{"-email", "admin@example.com", "-password", "s3cret", "-admin", "-db", dbPath}))
	require.NoError(t, cmd.Run())

	db, err := database.NewDatabase(config.Database{Driver: config.DatabaseDriverSQLite, Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := auth.NewService(users.NewRepository(db.DB), auth.NewHasher(config.Auth{ScryptN: 16}), false)
	user, err := svc.Signin(context.Background(), "admin@example.com", "s3cret")
	require.NoError(t, err)
	assert.True(t, user.Admin)

	again := NewCreateUserCommand(testConfig())
	require.NoError(t, again.ParseFlags([]string{"-email", "admin@example.com", "-password", "other", "-db", dbPath}))
	assert.ErrorIs(t, again.Run(), auth.ErrEmailInUse)
}
