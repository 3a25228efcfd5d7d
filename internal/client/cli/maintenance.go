package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/videofeed/internal/logging"
	"github.com/dmitrijs2005/videofeed/internal/server"
	"github.com/dmitrijs2005/videofeed/internal/server/config"
	"github.com/dmitrijs2005/videofeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/videofeed/internal/server/storage"
)

type cacheControlStore interface {
	SetCacheControl(ctx context.Context, prefix, ext, value string, dryRun bool) ([]string, error)
}

// Seams for tests.
var (
	openDB         = server.OpenDB
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newCacheStore  = func(ctx context.Context, cfg *config.Config) (cacheControlStore, error) {
		return server.NewStore(ctx, cfg)
	}
)

type serverConfigFlags struct {
	configFile string
	envFile    string
}

func (f *serverConfigFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "server-config", "", "Server configuration file (JSON or TOML)")
	cmd.Flags().StringVar(&f.envFile, "env-file", "", "Dotenv file with VIDEOFEED_* settings (default .env)")
}

func (f *serverConfigFlags) load(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadConfigFile(f.configFile, f.envFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogBackend, cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.With("module", "videoctl", "command", cmd.Name()), nil
}

func withDB(cfg *config.Config, fn func(*sql.DB) error) error {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func newMigrateCommand() *cobra.Command {
	var flags serverConfigFlags
	cmd := &cobra.Command{
		Use:         "migrate",
		Short:       "Apply database migrations",
		Args:        cobra.NoArgs,
		Annotations: skipConfig(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return withDB(cfg, func(db *sql.DB) error {
				if err := newRepoManager().RunMigrations(cmd.Context(), db); err != nil {
					return err
				}
				logger.Info(cmd.Context(), "migrations applied")
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSeedCommand() *cobra.Command {
	var (
		flags   serverConfigFlags
		caption string
		url     string
	)
	cmd := &cobra.Command{
		Use:         "seed",
		Short:       "Create the videos table and insert a sample row",
		Args:        cobra.NoArgs,
		Annotations: skipConfig(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return withDB(cfg, func(db *sql.DB) error {
				m := newRepoManager()
				if err := m.RunMigrations(cmd.Context(), db); err != nil {
					return err
				}
				v, err := m.Videos(db).Insert(cmd.Context(), caption, url)
				if err != nil {
					return err
				}
				logger.Info(cmd.Context(), "sample video inserted", "id", v.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Inserted sample video %d\n", v.ID)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&caption, "caption", "Sample video", "Caption of the sample row")
	cmd.Flags().StringVar(&url, "url", "https://example.com/sample.mp4", "URL of the sample row")
	return cmd
}

func newCacheHeadersCommand() *cobra.Command {
	var (
		flags  serverConfigFlags
		prefix string
		ext    string
		value  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:         "cache-headers",
		Short:       "Set Cache-Control on stored video objects",
		Long:        "Rewrites the Cache-Control metadata of every matching object in the bucket. Objects that already carry the value are left alone.",
		Args:        cobra.NoArgs,
		Annotations: skipConfig(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("prefix") {
				prefix = cfg.S3KeyPrefix
			}
			normExt, ok := storage.NormalizeExtension(ext)
			if !ok {
				return fmt.Errorf("unsupported extension %q", ext)
			}

			store, err := newCacheStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			keys, err := store.SetCacheControl(cmd.Context(), prefix, normExt, value, dryRun)
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			if err != nil {
				return err
			}

			verb := "Updated"
			if dryRun {
				verb = "Would update"
			}
			logger.Info(cmd.Context(), "cache headers processed", "objects", len(keys), "dry_run", dryRun)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d object(s)\n", verb, len(keys))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix to scan (default: configured key prefix)")
	cmd.Flags().StringVar(&ext, "ext", storage.DefaultExtension, "File extension to match")
	cmd.Flags().StringVar(&value, "value", config.DefaultCacheControl, "Cache-Control value to set")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List matching objects without changing them")
	return cmd
}
