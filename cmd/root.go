// Package cmd is the graphd command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"graphd/internal/auditctx"
	"graphd/internal/config"
	"graphd/internal/observability"
	"graphd/internal/service"
	"graphd/internal/store"
)

// cli is the state shared by one command tree.
type cli struct {
	v       *viper.Viper
	cfgFile string
	user    string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCmd builds the graphd command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	config.SetDefaults(c.v)

	root := &cobra.Command{
		Use:           "graphd",
		Short:         "graphd stores a dependency graph with node statuses and an audit trail.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.initializeConfig(); err != nil {
				return err
			}
			cfg, err := config.NewConfigFromViper(c.v)
			if err != nil {
				// Fall back to a console logger so the failure is still reported.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "graphd"})
				return err
			}
			c.cfg = cfg
			observability.InitializeLogger(cfg.Logger)
			c.logger = observability.GetLogger()
			c.logger.Debug("Configuration loaded", zap.String("version", Version), zap.String("database", cfg.Database.Path))
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./graphd.yaml or ~/.graphd/graphd.yaml)")
	root.PersistentFlags().String("db", "", "path to the SQLite database (overrides database.path)")
	root.PersistentFlags().StringVar(&c.user, "as", "admin", "user id CLI commands act as; its group comes from the users table")
	_ = c.v.BindPFlag("database.path", root.PersistentFlags().Lookup("db"))

	root.AddCommand(
		newServeCmd(c),
		newExportCmd(c),
		newImportCmd(c),
		newStatusCmd(c),
		newLogsCmd(c),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line under ctx.
func Execute(ctx context.Context) error {
	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file and GRAPHD_ environment variables.
func (c *cli) initializeConfig() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		c.v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			c.v.AddConfigPath(filepath.Join(home, ".graphd"))
		}
		c.v.SetConfigName("graphd")
		c.v.SetConfigType("yaml")
	}

	c.v.SetEnvPrefix("GRAPHD")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// openService opens the configured database and composes the full
// repository stack behind a service. The returned func closes the database.
func (c *cli) openService(ctx context.Context) (*service.Service, func(), error) {
	db, err := store.Open(ctx, c.cfg.Database.Path, c.cfg.Database.BusyTimeout, store.WithLogger(c.logger))
	if err != nil {
		return nil, nil, err
	}
	repos := store.NewStack(db, c.logger, store.StackOptions{RecordReads: c.cfg.Audit.RecordReads})
	closeFn := func() {
		if err := db.Close(); err != nil {
			c.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	return service.New(repos, c.logger), closeFn, nil
}

// actorContext attributes CLI work to the --as user.
func (c *cli) actorContext(ctx context.Context, svc *service.Service) (context.Context, error) {
	group, err := svc.GroupOf(ctx, c.user)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", c.user, err)
	}
	return auditctx.WithActor(ctx, auditctx.Actor{
		UserID:    c.user,
		Group:     group,
		IP:        "cli",
		RequestID: uuid.NewString(),
	}), nil
}
