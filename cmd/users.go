package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"pengguna"},
	Short:   "Manage panel users (super admin password required)",
	Long: `Manage the accounts that can use the panel and the outlet app.

Every users command first verifies the super admin password, taken from
--super-password or asked interactively.`,
	GroupID: "system",
}

var userRoles = []string{"user", "admin", "super_admin"}

// userPayload is the manage-users add/update payload
type userPayload struct {
	ID       string `json:"id,omitempty"`
	Nama     string `json:"nama"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Outlet   string `json:"outlet"`
	Role     string `json:"role"`
}

// validate checks the fields the panel form requires. The password may be
// left empty when updating.
func (u *userPayload) validate(updating bool) error {
	u.Nama = strings.TrimSpace(u.Nama)
	u.Email = strings.TrimSpace(u.Email)
	u.Outlet = strings.TrimSpace(u.Outlet)
	u.Role = strings.ToLower(strings.TrimSpace(u.Role))
	switch {
	case u.Nama == "":
		return errors.New("name is required")
	case !strings.Contains(u.Email, "@") || !strings.Contains(u.Email, "."):
		return fmt.Errorf("invalid email %q", u.Email)
	case u.Password == "" && !updating, u.Password != "" && len(u.Password) < 6:
		return errors.New("password must be at least 6 characters")
	case u.Outlet == "":
		return errors.New("--outlet is required")
	}
	for _, r := range userRoles {
		if u.Role == r {
			return nil
		}
	}
	return fmt.Errorf("unknown role %q (%s)", u.Role, strings.Join(userRoles, ", "))
}

// verifySuperAdmin asks the server to check the super admin password
func verifySuperAdmin(ctx context.Context, cmd *cobra.Command, a *app) error {
	if err := a.requireServer(); err != nil {
		return err
	}
	password, _ := cmd.Flags().GetString("super-password")
	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("--super-password is required when stdin is not a terminal")
		}
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Password super admin").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		)).WithTheme(huh.ThemeDracula()).Run()
		if err != nil {
			return err
		}
	}
	ok, err := a.api.VerifySuperAdmin(ctx, password)
	if err != nil {
		return fail("verify super admin: %v", err)
	}
	if !ok {
		return fail("verify super admin: %v", errors.New("wrong password"))
	}
	return nil
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := verifySuperAdmin(ctx, cmd, a); err != nil {
			return err
		}

		resp := a.api.ManageUsers(ctx, models.ManageRequest{Action: models.ManageGet})
		if resp.Err != nil {
			return fail("list users: %v", resp.Err)
		}
		rows, err := models.DecodeRecords(resp.Data)
		if err != nil {
			return fail("list users: %v", err)
		}
		return printRecords(cmd, rows, output.FormatUserLine, "No users.")
	},
}

func userFromFlags(cmd *cobra.Command, nama string) userPayload {
	u := userPayload{Nama: nama}
	u.Email, _ = cmd.Flags().GetString("email")
	u.Password, _ = cmd.Flags().GetString("password")
	u.Outlet, _ = cmd.Flags().GetString("outlet")
	u.Role, _ = cmd.Flags().GetString("role")
	return u
}

var usersAddCmd = &cobra.Command{
	Use:   "add <nama>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := userFromFlags(cmd, args[0])
		if err := u.validate(false); err != nil {
			return err
		}
		return manageUser(cmd, models.ManageAdd, u, fmt.Sprintf("User %s added", u.Nama))
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id> <nama>",
	Short: "Update a user; the password is kept unless --password is given",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := userFromFlags(cmd, args[1])
		u.ID = args[0]
		if err := u.validate(true); err != nil {
			return err
		}
		return manageUser(cmd, models.ManageUpdate, u, fmt.Sprintf("User %s updated", u.Nama))
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a user",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return manageUser(cmd, models.ManageDelete, map[string]string{"id": args[0]}, fmt.Sprintf("User %s deleted", args[0]))
	},
}

func manageUser(cmd *cobra.Command, action string, payload any, what string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := verifySuperAdmin(ctx, cmd, a); err != nil {
		return err
	}
	return reportResult(a.api.ManageUsers(ctx, models.ManageRequest{Action: action, Payload: payload}), what)
}

func init() {
	usersCmd.PersistentFlags().String("super-password", "", "super admin password (prompted when omitted)")
	usersListCmd.Flags().Bool("json", false, "output JSON")
	for _, c := range []*cobra.Command{usersAddCmd, usersUpdateCmd} {
		c.Flags().String("email", "", "login email")
		c.Flags().String("password", "", "login password, at least 6 characters")
		c.Flags().String("outlet", "", "outlet the user belongs to")
		c.Flags().String("role", "user", "user, admin or super_admin")
	}

	usersCmd.AddCommand(usersListCmd, usersAddCmd, usersUpdateCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}
