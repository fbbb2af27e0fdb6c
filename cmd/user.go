package cmd

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/auth"
	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
	Long: `Create accounts and grant admin rights.
Self-registration through the API always creates employees, so the first
admin has to be created or promoted here.`,
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE:  runUserCreate,
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin role to an existing user",
	RunE:  runUserPromote,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userPromoteCmd)

	userCreateCmd.Flags().String("email", "", "Email address (required)")
	userCreateCmd.Flags().String("name", "", "Full name (required)")
	userCreateCmd.Flags().String("password", "", "Password (required)")
	userCreateCmd.Flags().Bool("admin", false, "Create the user with the admin role")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("name")
	_ = userCreateCmd.MarkFlagRequired("password")

	userPromoteCmd.Flags().String("email", "", "Email address of the user (required)")
	_ = userPromoteCmd.MarkFlagRequired("email")
}

// newUserFromFlags validates the create flags and builds the account to store.
func newUserFromFlags(email, name, password string, admin bool) (*database.StoredUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	if len(password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("password must have at least %d characters", auth.MinPasswordLength)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, auth.ErrPasswordTooLong
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	role := database.RoleEmployee
	if admin {
		role = database.RoleAdmin
	}
	return &database.StoredUser{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	user, err := newUserFromFlags(
		mustGetString(cmd, "email"),
		mustGetString(cmd, "name"),
		mustGetString(cmd, "password"),
		mustGetBool(cmd, "admin"),
	)
	if err != nil {
		return err
	}

	cfg := config.Load()
	pool, err := connectCLIStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	users, err := database.GetUserWriter(ctx)
	if err != nil {
		return err
	}
	if err := users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return fmt.Errorf("email %s is already registered", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created %s %s <%s> (%s)\n", user.Role, user.Name, user.Email, user.ID)
	return nil
}

func runUserPromote(cmd *cobra.Command, args []string) error {
	email := mustGetString(cmd, "email")

	cfg := config.Load()
	pool, err := connectCLIStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	users, err := database.GetUserWriter(ctx)
	if err != nil {
		return err
	}
	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("no user with email %s", email)
	}
	if user.Role == database.RoleAdmin {
		fmt.Printf("%s is already an admin\n", user.Email)
		return nil
	}
	if err := users.SetRole(ctx, user.ID, database.RoleAdmin); err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}

	fmt.Printf("Promoted %s <%s> to admin\n", user.Name, user.Email)
	fmt.Println("The new role applies to tokens issued after the next login")
	return nil
}
