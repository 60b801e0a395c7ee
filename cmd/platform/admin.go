package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/personnel"
	httpauth "github.com/citypd/platform/internal/shared/auth"
	"github.com/citypd/platform/internal/shared/database"
	"github.com/citypd/platform/internal/shared/types"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if len(args) == 1 && args[0] == "down" {
			if err := database.MigrateDown(cfg.Database.URL()); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			logger.Info("migrations rolled back")
			return nil
		}
		return database.Migrate(cfg.Database.URL(), logger)
	},
}

var seedRolesCmd = &cobra.Command{
	Use:   "seed-roles",
	Short: "Write the default role table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		db, err := database.New(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := personnel.SeedDefaultRoles(cmd.Context(), personnel.NewRepository(db.Pool)); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		logger.Info("default roles seeded")
		return nil
	},
}

var createUserOpts struct {
	username  string
	firstName string
	lastName  string
	email     string
	roles     []string
	superuser bool
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Register a user with the given roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		db, err := database.New(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		store := personnel.NewRepository(db.Pool)
		authority, err := personnel.LoadAuthority(cmd.Context(), store)
		if err != nil {
			return err
		}
		directory := personnel.NewDirectory(store, nil, authority, logger)

		roles := make([]auth.Role, 0, len(createUserOpts.roles))
		for _, name := range createUserOpts.roles {
			role := auth.Role(name).Normalize()
			if !authority.HasRole(role) {
				return fmt.Errorf("unknown role %q", name)
			}
			roles = append(roles, role)
		}

		user, err := directory.CreateUser(cmd.Context(), personnel.NewUserInput{
			Username:  createUserOpts.username,
			FirstName: createUserOpts.firstName,
			LastName:  createUserOpts.lastName,
			Email:     createUserOpts.email,
			Superuser: createUserOpts.superuser,
			Roles:     roles,
		})
		if err != nil {
			return err
		}
		logger.Info("user created", zap.String("id", user.ID.String()), zap.String("username", user.Username))
		fmt.Fprintln(cmd.OutOrStdout(), user.ID.String())
		return nil
	},
}

var tokenOpts struct {
	userID string
	ttl    time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		id, err := types.ParseID(tokenOpts.userID)
		if err != nil {
			return fmt.Errorf("invalid --user-id: %w", err)
		}

		db, err := database.New(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := personnel.NewRepository(db.Pool).GetUser(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !user.Active {
			return fmt.Errorf("user %s is inactive", user.Username)
		}

		token, err := httpauth.IssueToken(cfg.Auth, user.ID, user.Username, tokenOpts.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	f := createUserCmd.Flags()
	f.StringVar(&createUserOpts.username, "username", "", "login name")
	f.StringVar(&createUserOpts.firstName, "first-name", "", "first name")
	f.StringVar(&createUserOpts.lastName, "last-name", "", "last name")
	f.StringVar(&createUserOpts.email, "email", "", "email address")
	f.StringSliceVar(&createUserOpts.roles, "role", nil, "role to grant (repeatable)")
	f.BoolVar(&createUserOpts.superuser, "superuser", false, "bypass action checks")
	_ = createUserCmd.MarkFlagRequired("username")

	tokenCmd.Flags().StringVar(&tokenOpts.userID, "user-id", "", "user to issue the token for")
	tokenCmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user-id")
}
