// Package cli implements the nodemind CLI commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/config"
	"github.com/rcliao/nodemind/internal/logging"
	"github.com/rcliao/nodemind/internal/store"
)

var (
	configPath string
	dbPath     string
	formatFlag string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "nodemind",
	Short: "Mind map, tasks and focus timer in one local database",
	Long: "nodemind keeps linked notes laid out as a mind map, a task list and " +
		"focus sessions in a single SQLite file.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $NODEMIND_CONFIG or ~/.nodemind/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $NODEMIND_DB or ~/.nodemind/nodemind.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().Lookup("log-level").NoOptDefVal = "debug"
}

// app is what every command needs: settings, a logger and the open store.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.SQLiteStore
	loc    *time.Location
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(cfg.DBPath, store.WithLogger(logger))
	if err != nil {
		logger.Sync()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: s, loc: loc}
	a.markLaunched(cmd)
	return a, nil
}

// markLaunched records the first run against this database.
func (a *app) markLaunched(cmd *cobra.Command) {
	ctx := cmd.Context()
	if _, ok, err := a.store.GetPref(ctx, store.PrefFirstLaunch); err != nil || ok {
		return
	}
	a.logger.Info("first launch", zap.String("db", a.cfg.DBPath))
	if err := a.store.SetPref(ctx, store.PrefFirstLaunch, "false"); err != nil {
		a.logger.Warn("save first launch flag", zap.Error(err))
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	a.logger.Sync()
}

// mustOpen opens the app or exits.
func mustOpen(cmd *cobra.Command) *app {
	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	return a
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
