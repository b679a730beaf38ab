package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/mycv/internal/auth"
	"github.com/mrlokans/mycv/internal/config"
	"github.com/mrlokans/mycv/internal/database"
	"github.com/mrlokans/mycv/internal/database/users"
)

// CreateUserCommand creates an account directly in the database. It is the
// way to bootstrap the first administrator.
type CreateUserCommand struct {
	Email        string
	Password     string
	Admin        bool
	DatabasePath string

	cfg *config.Config
}

func NewCreateUserCommand(cfg *config.Config) *CreateUserCommand {
	return &CreateUserCommand{cfg: cfg}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.Email, "email", "", "Email address of the new user (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password of the new user (required)")
	fs.BoolVar(&cmd.Admin, "admin", false, "Grant the administrator flag")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the sqlite database file (defaults to DATABASE_PATH)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -email <email> -password <password> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user account without going through the HTTP API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Bootstrap an administrator:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -email admin@example.com -password s3cret -admin\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	if cmd.Password == "" {
		return fmt.Errorf("required flag -password not provided")
	}

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	cfg := cmd.cfg
	if cfg == nil {
		cfg = config.NewConfig()
	}

	dbCfg := cfg.Database
	if cmd.DatabasePath != "" {
		dbCfg.Driver = config.DatabaseDriverSQLite
		dbCfg.Path = cmd.DatabasePath
	}

	db, err := database.NewDatabase(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := auth.NewService(users.NewRepository(db.DB), auth.NewHasher(cfg.Auth), false)
	user, err := svc.CreateUser(context.Background(), cmd.Email, cmd.Password, cmd.Admin)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created user %d (%s), admin=%t\n", user.ID, user.Email, user.Admin)
	return nil
}
