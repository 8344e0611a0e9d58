package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"teamboard/internal/config"
	"teamboard/internal/format"
	"teamboard/internal/logging"
	"teamboard/internal/model"
	"teamboard/internal/service"
	"teamboard/internal/session"
	"teamboard/internal/store"
	"teamboard/internal/tui"
)

// App carries the persistent flags and the per-invocation state shared by
// every command.
type App struct {
	APIURL         string
	SessionBackend string
	Timeout        time.Duration
	LogLevel       string
	Debug          bool
	PrettyJSON     bool
	Format         string

	cfg  config.Config
	log  zerolog.Logger
	sess *session.Session
	svc  *service.Services
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "teamboard",
		Short:        "Team task board: CLI + TUI client",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  teamboard

  # Sign in once; the session is kept in ~/.teamboard
  teamboard login --email ada@example.com --password '...'

  # Scriptable commands
  teamboard tasks list --mine
  teamboard tasks set-status 12 done

  # Direct task lookup (shortcut for: teamboard tasks show <task-id>)
  teamboard 12
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		app.Format = cfg.Format
		app.PrettyJSON = cfg.Pretty
		app.log = logging.New(logging.Options{Level: cfg.LogLevel, Debug: app.Debug, Out: cmd.ErrOrStderr()})
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.APIURL, "api-url", "", "Backend API base URL (default "+config.DefaultAPIURL+")")
	pf.StringVar(&app.SessionBackend, "session-backend", "", "Session storage: file|sqlite (default file)")
	pf.DurationVar(&app.Timeout, "timeout", 0, "HTTP timeout per request (0 = none)")
	pf.StringVar(&app.LogLevel, "log-level", "", "Log level: trace|debug|info|warn|error|disabled (default warn)")
	pf.BoolVar(&app.Debug, "debug", false, "Shortcut for --log-level debug")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	pf.StringVar(&app.Format, "format", "", "Output format (json|edn|table)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newSessionCmd(app))
	cmd.AddCommand(newTodosCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newSubTasksCmd(app))
	cmd.AddCommand(newTeamCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	f, err := logging.OpenFile(app.cfg.Dir)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer f.Close()
	app.log = logging.New(logging.Options{Level: app.cfg.LogLevel, Debug: app.Debug, Out: f, NoColor: true})

	kv, err := store.Open(app.cfg.SessionBackend, app.cfg.Dir)
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(cmd.Context(), tui.Options{
		BaseURL:    app.cfg.APIURL,
		HTTPClient: &http.Client{Timeout: app.cfg.Timeout},
		Store:      store.NewSessionStore(kv),
		Logger:     &app.log,
		ASCII:      app.cfg.TUI.Glyphs == "ascii",
	})
}

// connect builds the session and services for this invocation.
func (app *App) connect(cmd *cobra.Command) (*session.Session, *service.Services, error) {
	if app.sess != nil {
		return app.sess, app.svc, nil
	}
	kv, err := store.Open(app.cfg.SessionBackend, app.cfg.Dir)
	if err != nil {
		return nil, nil, err
	}
	errOut := cmd.ErrOrStderr()
	app.sess, app.svc = session.Connect(session.ConnectOptions{
		BaseURL:    app.cfg.APIURL,
		HTTPClient: &http.Client{Timeout: app.cfg.Timeout},
		Store:      store.NewSessionStore(kv),
		Logger:     &app.log,
		Navigator: session.NavigatorFunc(func() {
			fmt.Fprintln(errOut, "signed out; run `teamboard login` to sign in again")
		}),
	})
	return app.sess, app.svc, nil
}

var errSignedOut = fmt.Errorf("%w; run `teamboard login` first", session.ErrNotAuthenticated)

// signedIn resolves the stored session and fails when nobody is signed in.
func (app *App) signedIn(cmd *cobra.Command) (*session.Session, *service.Services, model.User, error) {
	sess, svc, err := app.connect(cmd)
	if err != nil {
		return nil, nil, model.User{}, err
	}
	if sess.IsLoading() {
		sess.Init(cmdContext(cmd))
	}
	u, ok := sess.User()
	if !ok {
		if cause := sess.InitErr(); cause != nil {
			return nil, nil, model.User{}, fmt.Errorf("%w (%v)", errSignedOut, cause)
		}
		return nil, nil, model.User{}, errSignedOut
	}
	return sess, svc, u, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// readSecret returns flagValue, or the first line of r when fromStdin is set.
func readSecret(r io.Reader, flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		return flagValue, nil
	}
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "", err
	}
	s := strings.TrimRight(strings.SplitN(string(b), "\n", 2)[0], "\r")
	if s == "" {
		return "", errors.New("empty password on stdin")
	}
	return s, nil
}
