package main

import (
	"fmt"
	"os"

	"github.com/kass/go-pinmap/pkg/api"
	"github.com/kass/go-pinmap/pkg/config"
	"github.com/kass/go-pinmap/pkg/controller"
	"github.com/kass/go-pinmap/pkg/editor"
	"github.com/kass/go-pinmap/pkg/logging"
	"github.com/kass/go-pinmap/pkg/session"
	"github.com/kass/go-pinmap/pkg/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pinmap",
	Short: "Drop and browse geotagged pins on a terminal map",
	Long: `pinmap is a client for a shared pin map. Logged-in users add pins with a
title, description, rating and photo; everyone can browse them on the map.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(mapCmd, pinsCmd, loginCmd, logoutCmd, registerCmd, whoamiCmd, addCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

// app is the wiring shared by every command
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *storage.KV
	sessions *session.Manager
	client   *api.Client

	closers []func()
}

// newApp loads the config and opens the logger, the session store and the
// service client. Commands that own the terminal log to the configured file;
// the others log to stderr.
func newApp(logToFile bool) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logPath := ""
	if logToFile {
		logPath = cfg.Log.File
	} else if !verbose {
		level = "warn"
	}

	logger, closeLog, err := logging.New(logPath, level)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []func(){closeLog}}

	if cfg.Source != "" {
		logger.Debug("config loaded", zap.String("path", cfg.Source))
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, func() { _ = store.Close() })
	a.sessions = session.NewManager(store)

	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logger.Named("api")))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	return a, nil
}

// controller builds a controller logged in as the persisted user, if any
func (a *app) controller() (*controller.Controller, error) {
	s, err := a.sessions.Restore()
	if err != nil {
		return nil, err
	}
	return controller.New(a.client, a.sessions,
		controller.WithLogger(a.logger.Named("controller")),
		controller.WithTimeout(a.cfg.Timeout()),
		controller.WithViewport(a.cfg.Viewport()),
		controller.WithSession(s),
		controller.WithEditor(editor.New(editor.WithRequiredRating(a.cfg.Editor.RequireRating))),
	), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// runWithApp adapts a command body to cobra
func runWithApp(logToFile bool, fn func(a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(logToFile)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(a, cmd, args)
	}
}

// noticeErr turns an error notice left by the controller into an error
func noticeErr(st controller.State) error {
	if st.Notice.Level == controller.LevelError || st.Notice.Level == controller.LevelWarning {
		return fmt.Errorf("%s", st.Notice.Text)
	}
	return nil
}
