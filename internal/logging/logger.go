package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/2beens/pushups/pkg"
)

const (
	logFileMaxSizeMB = 50
	logFileExt       = ".log"
)

type LoggerSetupParams struct {
	LogFileName      string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
	// zero keeps rotated files forever
	MaxBackups int
	MaxAgeDays int
}

// Setup configures the global logrus logger used through the log alias.
// Without a file name, logs go to stdout only.
func Setup(params LoggerSetupParams) {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.SentryEnabled {
		setupSentry(params)
	}

	logrus.SetOutput(output(params))
}

func setupSentry(params LoggerSetupParams) {
	if err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 1.0,
		ServerName:       params.SentryServerName,
	}); err != nil {
		logrus.Errorf("sentry init: %s", err)
		return
	}

	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	logrus.Infoln("sentry hook added")
}

func output(params LoggerSetupParams) io.Writer {
	if params.LogFileName == "" {
		logrus.Println("writing logs only to STDOUT")
		return os.Stdout
	}

	fileName := params.LogFileName
	if filepath.Ext(fileName) != logFileExt {
		fileName += logFileExt
	}

	rotating := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    logFileMaxSizeMB,
		LocalTime:  false, // UTC timestamps in backup names
		Compress:   true,
		MaxBackups: params.MaxBackups,
		MaxAge:     params.MaxAgeDays,
	}

	if !params.LogToStdout {
		return rotating
	}

	logrus.Printf("writing logs to %s and STDOUT", fileName)
	return pkg.NewCombinedWriter(os.Stdout, rotating)
}

// GetLevel falls back to info for empty or unknown levels.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
