// Package cli wires the cobra command tree for the alignd binary.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rtgae/alignd/internal/adapters/storage/sqlite"
	"github.com/rtgae/alignd/internal/app"
	"github.com/rtgae/alignd/internal/config"
	"github.com/rtgae/alignd/internal/platform"
)

// rootOptions holds persistent flag state shared by all subcommands.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	version    string
}

// NewRootCommand builds the alignd command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("ALIGND_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultAppName := "alignd"
	if envApp := strings.TrimSpace(os.Getenv("ALIGND_APP_NAME")); envApp != "" {
		defaultAppName = envApp
	}

	cmd := &cobra.Command{
		Use:           "alignd",
		Short:         "Program board with recommit auditing and planning-accuracy metrics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	cmd.PersistentFlags().StringVar(&opts.appName, "app", defaultAppName, "application name for config/data path resolution")
	cmd.PersistentFlags().BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	cmd.AddCommand(
		newServeCommand(opts),
		newSummaryCommand(opts),
		newExportCommand(opts),
		newPathsCommand(opts),
	)
	return cmd
}

// runtime bundles the resolved config, logger, and open repository for one
// command invocation.
type runtime struct {
	cfg        config.Config
	configPath string
	paths      platform.Paths
	logger     *charmLog.Logger
	repo       *sqlite.Repository
	svc        *app.Service
	session    *app.Session
}

// Close releases the repository.
func (rt *runtime) Close() error {
	if rt == nil || rt.repo == nil {
		return nil
	}
	return rt.repo.Close()
}

// resolvePaths computes platform paths and the effective config/db locations.
func (o *rootOptions) resolvePaths() (platform.Paths, string, string, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return platform.Paths{}, "", "", err
	}

	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("ALIGND_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	if dbPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("ALIGND_DB_PATH")); envPath != "" {
			dbPath = envPath
		} else {
			dbPath = paths.DBPath
		}
	}
	return paths, configPath, dbPath, nil
}

// openRuntime loads config, configures logging, and opens the service stack.
func (o *rootOptions) openRuntime(stderr io.Writer) (*runtime, error) {
	paths, configPath, dbPath, err := o.resolvePaths()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if strings.TrimSpace(o.dbPath) != "" || strings.TrimSpace(os.Getenv("ALIGND_DB_PATH")) != "" {
		cfg.Database.Path = dbPath
	}

	logger, err := newLogger(stderr, o.appName, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("configure logger: %w", err)
	}
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)

	logger.Debug("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		DefaultActor: cfg.Defaults.Actor,
		StreamColors: cfg.Defaults.StreamColors,
	})

	return &runtime{
		cfg:        cfg,
		configPath: configPath,
		paths:      paths,
		logger:     logger,
		repo:       repo,
		svc:        svc,
		session:    app.NewSession(),
	}, nil
}

// newLogger builds the styled console logger.
func newLogger(stderr io.Writer, appName string, cfg config.LoggingConfig) (*charmLog.Logger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	}), nil
}

// parseBoolEnv reads one boolean env var, reporting whether it was set to a
// recognized value.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch raw {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
