package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/pushups/internal/config"
	"github.com/2beens/pushups/internal/db"
	"github.com/2beens/pushups/internal/logging"
)

type rootOptions struct {
	env        string
	configPath string
	envFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "pushupctl",
		Short:         "Admin tools for the pushups backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if err := godotenv.Load(opts.envFile); err != nil {
				log.Debugf("no env file loaded [%s]: %s", opts.envFile, err)
			}
			logging.Setup(logging.LoggerSetupParams{
				LogToStdout: true,
				LogLevel:    opts.logLevel,
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file with secrets")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")

	rootCmd.AddCommand(newRecomputeCmd(opts))
	rootCmd.AddCommand(newDedupeDaysCmd(opts))
	rootCmd.AddCommand(newBackupCmd(opts))

	return rootCmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.env, o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func dbParams(cfg *config.Config) db.NewDBPoolParams {
	return db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("PUSHUPS_POSTGRES_PASS"),
		SSLMode:    cfg.PostgresSSLMode,
	}
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewDBPool(ctx, dbParams(cfg))
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}
