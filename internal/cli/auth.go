package cli

import (
	"github.com/spf13/cobra"

	"teamboard/internal/session"
)

func newLoginCmd(app *App) *cobra.Command {
	var email string
	var password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd.InOrStdin(), password, passwordStdin)
			if err != nil {
				return writeErr(cmd, err)
			}
			sess, _, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := sess.Login(cmdContext(cmd), email, pw); err != nil {
				return writeErr(cmd, err)
			}
			u, _ := sess.User()
			return writeOut(cmd, app, map[string]any{"data": u})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("TEAMBOARD_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", envOr("TEAMBOARD_PASSWORD", ""), "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var name string
	var email string
	var password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long:  "Create an account and sign in. The first account on a fresh backend becomes an ADMIN.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd.InOrStdin(), password, passwordStdin)
			if err != nil {
				return writeErr(cmd, err)
			}
			sess, _, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := sess.Register(cmdContext(cmd), name, email, pw); err != nil {
				return writeErr(cmd, err)
			}
			u, _ := sess.User()
			return writeOut(cmd, app, map[string]any{"data": u})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", envOr("TEAMBOARD_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", envOr("TEAMBOARD_PASSWORD", ""), "Account password (8..128 chars)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := sess.Logout(cmdContext(cmd)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"signed_in": false}})
		},
	}
}

type sessionView struct {
	SignedIn bool               `json:"signed_in"`
	Outcome  string             `json:"outcome"`
	Error    string             `json:"error,omitempty"`
	User     any                `json:"user"`
	Token    *session.TokenInfo `json:"token,omitempty"`
	APIURL   string             `json:"api_url"`
	Backend  string             `json:"session_backend"`
}

func newSessionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "session",
		Aliases: []string{"whoami"},
		Short:   "Show who is signed in",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			c := cmdContext(cmd)
			// Read the token before Init; a failed check clears it.
			info, hasToken, tokErr := sess.TokenInfo(c)
			sess.Init(c)

			out := sessionView{
				Outcome: sess.Outcome().String(),
				APIURL:  app.cfg.APIURL,
				Backend: app.cfg.SessionBackend,
			}
			if u, ok := sess.User(); ok {
				out.SignedIn = true
				out.User = u
			}
			if cause := sess.InitErr(); cause != nil {
				out.Error = cause.Error()
			}
			if hasToken && tokErr == nil {
				out.Token = &info
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}
