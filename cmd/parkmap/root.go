package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"parking-locator/config"
	"parking-locator/internal/account"
	"parking-locator/internal/backend"
	"parking-locator/internal/i18n"
	"parking-locator/internal/location"
	"parking-locator/internal/logger"
	"parking-locator/internal/mapscreen"
	"parking-locator/internal/model"
	"parking-locator/internal/render"
	"parking-locator/internal/session"
	"parking-locator/internal/status"
	"parking-locator/internal/subscriptions"
)

type rootFlags struct {
	configPath string
	baseURL    string
	renderer   string
	locale     string
	userID     int64
	token      string
	dark       bool
	verbose    bool
}

// app is everything a subcommand needs, assembled once per invocation.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	catalog  *i18n.Catalog
	client   *backend.Client
	prefs    *session.Preferences
	banner   *status.Banner
	renderer render.Renderer
	tz       *time.Location
	out      io.Writer
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	root := &cobra.Command{
		Use:           "parkmap",
		Short:         "Find a free parking spot on campus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", defaultConfigPath(), "path to the configuration file, empty for defaults only")
	pf.StringVar(&flags.baseURL, "base-url", "", "backend base URL (overrides client.base_url)")
	pf.StringVar(&flags.renderer, "renderer", "", fmt.Sprintf("screen renderer, one of %v", render.Names()))
	pf.StringVar(&flags.locale, "locale", "", "message language (en, sk)")
	pf.Int64Var(&flags.userID, "user", 0, "signed-in user id (overrides client.user_id)")
	pf.StringVar(&flags.token, "token", "", "bearer token for the backend (overrides client.token)")
	pf.BoolVar(&flags.dark, "dark", false, "use the dark palette")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newSpotsCmd(a),
		newClosestCmd(a),
		newClosestFavouriteCmd(a),
		newDetailCmd(a),
		newHistoryCmd(a),
		newNotifyCmd(a),
		newFavouriteCmd(a),
		newNotificationsCmd(a),
		newUnsubscribeCmd(a),
		newResendPasswordCmd(a),
		newLoginCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, flags *rootFlags) error {
	// A missing .env is fine, the config file and environment still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	client := &cfg.Client
	if flags.baseURL != "" {
		client.BaseURL = flags.baseURL
	}
	if flags.renderer != "" {
		client.Renderer = flags.renderer
	}
	if flags.locale != "" {
		client.Locale = flags.locale
	}
	if cmd.Flags().Changed("user") {
		client.UserID = flags.userID
	}
	if flags.token != "" {
		client.Token = flags.token
	}
	if cmd.Flags().Changed("dark") {
		client.ThemeDark = flags.dark
	}

	level := zerolog.WarnLevel
	if flags.verbose {
		level = zerolog.DebugLevel
	}
	a.log = logger.NewWithWriter(cmd.ErrOrStderr(), level)

	a.catalog, err = i18n.Load(client.Locale)
	if err != nil {
		return err
	}

	a.tz, err = time.LoadLocation(cfg.Sensor.Timezone)
	if err != nil {
		a.log.Warn("unknown timezone, using local time", map[string]interface{}{"timezone": cfg.Sensor.Timezone})
		a.tz = time.Local
	}

	a.out = cmd.OutOrStdout()
	a.renderer, err = render.New(client.Renderer, render.Options{
		Catalog:  a.catalog,
		Location: a.tz,
		ANSI:     isTerminal(a.out),
	})
	if err != nil {
		return err
	}

	var user *session.User
	if client.UserID != session.AnonymousUserID {
		user = &session.User{ID: client.UserID, Token: client.Token}
	}
	a.prefs = session.New(user, client.ThemeDark)
	a.banner = status.New(a.catalog, 0)
	a.client = backend.New(client.BaseURL, client.Timeout,
		backend.WithLogger(a.log),
		backend.WithTokenSource(func() string {
			if u, ok := a.prefs.User(); ok {
				return u.Token
			}
			return ""
		}),
	)
	a.cfg = cfg
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func (a *app) mapController() (*mapscreen.Controller, error) {
	policy, err := mapscreen.ParseRollbackPolicy(a.cfg.Client.RollbackPolicy)
	if err != nil {
		return nil, err
	}
	loc := a.cfg.Client.Location
	return mapscreen.New(a.prefs, a.client, &location.Static{
		Granted:  loc.PermissionGranted,
		Position: &model.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude},
	}, a.banner, a.catalog,
		mapscreen.WithRollbackPolicy(policy),
		mapscreen.WithLogger(a.log),
		mapscreen.WithTimeLocation(a.tz),
	), nil
}

func (a *app) subscriptionsController() *subscriptions.Controller {
	return subscriptions.New(a.prefs, a.client, a.banner, a.log)
}

func (a *app) passwordResend() *account.PasswordResend {
	return account.NewPasswordResend(a.client, a.banner, a.log)
}

// requireUser returns the signed-in user id or an error naming the flag.
func (a *app) requireUser() (int64, error) {
	u, ok := a.prefs.User()
	if !ok {
		return 0, fmt.Errorf("this command needs a signed-in user, pass --user or set client.user_id")
	}
	return u.ID, nil
}
