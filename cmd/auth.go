package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/session"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage the admin login",
	GroupID: "system",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email or user name",
	Long: `Log in to the admin panel backend.

Without --password an interactive form asks for the missing fields. A login
name without "@" is looked up in the users table to find its email. Only
admin and super_admin accounts may log in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		login, _ := cmd.Flags().GetString("user")
		password, _ := cmd.Flags().GetString("password")

		if login == "" || password == "" {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("--user and --password are required when stdin is not a terminal")
			}
			if err := loginForm(&login, &password); err != nil {
				return err
			}
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireServer(); err != nil {
			return err
		}

		ctx := cmd.Context()
		email := strings.TrimSpace(login)
		if !strings.Contains(email, "@") {
			email, err = a.auth.LookupEmailByName(ctx, email)
			if err != nil {
				return fail("lookup user: %v", err)
			}
		}

		grant, err := a.auth.SignInWithPassword(ctx, email, password)
		if err != nil {
			return fail("login: %v", err)
		}
		profile, err := a.auth.FetchProfile(ctx, grant.AccessToken, grant.User.ID)
		if err != nil {
			return fail("load profile: %v", err)
		}

		sess := session.FromGrant(grant, profile, time.Now())
		if !sess.User.IsAdmin() {
			return fail("login: %v", fmt.Errorf("account %s has role %q, admin required", email, sess.User.Role))
		}
		if err := a.session.Save(sess); err != nil {
			return fail("save session: %v", err)
		}

		output.Success("Logged in as %s (%s)", displayName(sess.User), sess.User.Role)
		return nil
	},
}

func loginForm(login, password *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email atau nama").
				Value(login).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("wajib diisi")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("wajib diisi")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula()).Run()
}

func displayName(u session.User) string {
	if u.Nama != "" {
		return u.Nama
	}
	return u.Email
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored login",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.Clear(); err != nil {
			return fail("logout: %v", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored login",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.session.Load()
		if err != nil {
			return fail("load session: %v", err)
		}
		if sess == nil {
			fmt.Println("Not logged in.")
			return nil
		}

		fmt.Printf("User:    %s\n", displayName(sess.User))
		fmt.Printf("Email:   %s\n", sess.User.Email)
		fmt.Printf("Role:    %s\n", sess.User.Role)
		if sess.User.Outlet != "" {
			fmt.Printf("Outlet:  %s\n", sess.User.Outlet)
		}
		expiry := sess.ExpiresAt.Local().Format("2006-01-02 15:04")
		if sess.Expired(time.Now()) {
			expiry += " (expired, renewed on next request)"
		}
		fmt.Printf("Expires: %s\n", expiry)
		return nil
	},
}

func init() {
	authLoginCmd.Flags().StringP("user", "u", "", "email or user name")
	authLoginCmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
