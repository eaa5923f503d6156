package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/bjaergning/rapport/internal/config"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/spf13/cobra"
)

var userCmdFlags struct {
	Password string
	Admin    bool
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all user accounts",
	Args:  cobra.NoArgs,
	RunE: withDatabase(func(cmd *cobra.Command, db database.DB, _ []string) error {
		users, err := db.ListUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tADMIN") //nolint:errcheck
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%t\n", u.ID, u.Username, u.IsAdmin) //nolint:errcheck
		}
		return w.Flush()
	}),
}

var userAddCmd = &cobra.Command{
	Use:     "add <username>",
	Short:   "Create a user account",
	Example: `rapport user add bruger7 --password hemmelig`,
	Args:    cobra.ExactArgs(1),
	RunE: withDatabase(func(cmd *cobra.Command, db database.DB, args []string) error {
		user, err := db.CreateUser(cmd.Context(), args[0], userCmdFlags.Password, userCmdFlags.Admin)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Printf("Created user %s with id %d\n", user.Username, user.ID)
		return nil
	}),
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a non-admin user account",
	Args:  cobra.ExactArgs(1),
	RunE: withDatabase(func(cmd *cobra.Command, db database.DB, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		if err := db.DeleteUser(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		fmt.Printf("Deleted user %d\n", id)
		return nil
	}),
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <id>",
	Short: "Set a new password for a user account",
	Args:  cobra.ExactArgs(1),
	RunE: withDatabase(func(cmd *cobra.Command, db database.DB, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		if err := db.ResetPassword(cmd.Context(), id, userCmdFlags.Password); err != nil {
			return fmt.Errorf("failed to reset password: %w", err)
		}
		fmt.Printf("Password of user %d has been reset\n", id)
		return nil
	}),
}

func init() {
	userAddCmd.Flags().StringVarP(&userCmdFlags.Password, "password", "p", "", "Password of the new user")
	userAddCmd.Flags().BoolVar(&userCmdFlags.Admin, "admin", false, "Grant administrator rights")
	_ = userAddCmd.MarkFlagRequired("password")

	userResetPasswordCmd.Flags().StringVarP(&userCmdFlags.Password, "password", "p", "", "New password")
	_ = userResetPasswordCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userListCmd, userAddCmd, userDeleteCmd, userResetPasswordCmd)
	rootCmd.AddCommand(userCmd)
}

// withDatabase opens the configured database for the duration of a command.
func withDatabase(fn func(cmd *cobra.Command, db database.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := database.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint: errcheck

		return fn(cmd, db, args)
	}
}

func parseUserID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return uint(id), nil
}
