package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushups/internal"
	"github.com/2beens/pushups/internal/config"
	"github.com/2beens/pushups/internal/logging"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file with secrets")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("no env file loaded [%s]: %s\n", *envFile, err)
	}

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "pushups-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)
	log.Debugf("default timezone: [%s]", cfg.DefaultTimezone)

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(ctx, serverParamsFromEnv(cfg))
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// serverParamsFromEnv collects the secrets kept out of config.toml.
func serverParamsFromEnv(cfg *config.Config) internal.NewServerParams {
	params := internal.NewServerParams{
		Config:                  cfg,
		IpInfoAPIKey:            os.Getenv("PUSHUPS_IPINFO_TOKEN"),
		PostgresPassword:        os.Getenv("PUSHUPS_POSTGRES_PASS"),
		RedisPassword:           os.Getenv("PUSHUPS_REDIS_PASS"),
		HoneycombTracingEnabled: os.Getenv("HONEYCOMB_ENABLED") == "true",
	}

	if params.IpInfoAPIKey == "" && cfg.GeoIPEnabled {
		log.Errorln("geo ip enabled but PUSHUPS_IPINFO_TOKEN not set, timezones fall back to profile and default")
	}
	if params.RedisPassword == "" {
		log.Warnln("redis password not set, use PUSHUPS_REDIS_PASS")
	}
	if params.PostgresPassword == "" {
		log.Warnln("postgres password not set, use PUSHUPS_POSTGRES_PASS")
	}

	if !params.HoneycombTracingEnabled {
		log.Debugln("honeycomb tracing disabled")
		return params
	}
	if os.Getenv("HONEYCOMB_API_KEY") == "" {
		log.Warnln("HONEYCOMB_API_KEY env var not set")
	}
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		log.Warnln("OTEL_SERVICE_NAME env var not set")
	}

	return params
}
