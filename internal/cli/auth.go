package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/Julie-03/Kapee/internal/app"
	"github.com/Julie-03/Kapee/pkg/domain"
	"github.com/spf13/cobra"
)

type loginView struct {
	User      domain.User `json:"user"`
	Admin     bool        `json:"admin"`
	CartItems int         `json:"cartItems"`
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and load your saved cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				user, err := a.Login(ctx, email, password)
				if err != nil {
					return err
				}
				view := loginView{User: user, Admin: user.IsAdmin(), CartItems: a.Cart().TotalItemCount()}
				return out.Success(view, func(w io.Writer) {
					if view.Admin {
						fmt.Fprintf(w, "Logged in as admin %s\n", user.Email)
					} else {
						fmt.Fprintf(w, "Welcome back, %s!\n", displayName(user))
					}
					fmt.Fprintf(w, "Cart: %d item(s)\n", view.CartItems)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session; the saved cart stays on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Logout(ctx); err != nil {
					return err
				}
				return out.Success(map[string]bool{"loggedOut": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Logged out")
				})
			})
		},
	}
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Register(ctx, username, email, password); err != nil {
					return err
				}
				return out.Success(map[string]string{"email": email}, func(w io.Writer) {
					fmt.Fprintln(w, "Account created. Log in to continue.")
				})
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				user, ok := a.Session().User()
				if !ok {
					return out.Success(map[string]bool{"authenticated": false}, func(w io.Writer) {
						fmt.Fprintln(w, "Not logged in")
					})
				}
				return out.Success(user, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s)\n", displayName(user), user.Role)
				})
			})
		},
	}
}

func displayName(u domain.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
