package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gatedesk/gatedesk/internal/auth"
	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/database"
	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
)

var migrationsPath string

func main() {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage gatedesk database migrations",
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", "migrations", "path to migration files")

	root.AddCommand(upCmd(), downCmd(), statusCmd(), createCmd(), createUserCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMigrate() (*migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.Name, cfg.Database.SSLMode,
	)

	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return m, nil
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrate()
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Up(); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					fmt.Println("no pending migrations")
					return nil
				}
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrate()
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Steps(-1); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					fmt.Println("nothing to roll back")
					return nil
				}
				return err
			}
			fmt.Println("rolled back one migration")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrate()
			if err != nil {
				return err
			}
			defer m.Close()

			version, dirty, err := m.Version()
			if err != nil {
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				return err
			}
			fmt.Printf("version: %d, dirty: %v\n", version, dirty)
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var displayName string

	cmd := &cobra.Command{
		Use:   "createuser <username>",
		Short: "Create an operator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			fmt.Print("Password: ")
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if len(password) < cfg.Security.Password.MinLength {
				return fmt.Errorf("password must be at least %d characters", cfg.Security.Password.MinLength)
			}

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			params := auth.NewParams(
				cfg.Security.Password.Argon2Memory,
				cfg.Security.Password.Argon2Iterations,
				cfg.Security.Password.Argon2Parallelism,
			)
			hash, err := auth.HashPassword(string(password), params)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			if displayName == "" {
				displayName = username
			}
			now := time.Now()
			user := &model.User{
				ID:           "usr_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:26],
				Username:     username,
				DisplayName:  displayName,
				PasswordHash: hash,
				Active:       true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			if err := repository.NewUserRepository(db).Create(cmd.Context(), user); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return fmt.Errorf("username %q is already taken", username)
				}
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Printf("created operator %s (%s)\n", username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name for the account")
	return cmd
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new pair of migration files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			version := time.Now().UTC().Format("20060102150405")

			for _, direction := range []string{"up", "down"} {
				filename := fmt.Sprintf("%s/%s_%s.%s.sql", migrationsPath, version, name, direction)
				f, err := os.Create(filename)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", filename, err)
				}
				f.Close()
				fmt.Println("created", filename)
			}
			return nil
		},
	}
}
