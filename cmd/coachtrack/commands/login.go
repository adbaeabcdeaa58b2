package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/coachtrack/internal/auth"
)

func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <link-or-token>",
		Short: "Sign in with the login link from your coach",
		Long: `Exchanges a one-time login link for a session credential. The link can be
pasted whole or as the bare token from its "token" query parameter.`,
		Args: cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			res, err := e.app.Login(ctx, loginToken(args[0]))
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s. Signed in until %s.\n", res.Profile.FirstName, res.ExpiresAt)
			return nil
		}),
	}
}

// loginToken extracts the token from a pasted login URL.
func loginToken(s string) string {
	s = strings.TrimSpace(s)
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		if t := u.Query().Get("token"); t != "" {
			return t
		}
	}
	return s
}

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			token, ok := e.app.Creds.Token()
			e.app.Creds.Clear()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if exp, err := auth.Expiry(token); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed out (credential was valid until %s).\n", exp.Format(time.DateTime))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		}),
	}
}
