package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logLevel *slog.LevelVar = &slog.LevelVar{}
var jsonLogger *slog.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

// setupLogging applies the logging configuration. When a log file is set the logs are written
// both to stderr and to the rotated file, which is returned so that it can be closed.
func setupLogging(loggingConfig config.LoggingConfig) *lumberjack.Logger {
	setLogLevel(loggingConfig)
	if loggingConfig.File == "" {
		slog.SetDefault(jsonLogger)
		return nil
	}
	file := &lumberjack.Logger{
		Filename:   loggingConfig.File,
		MaxSize:    loggingConfig.MaxSizeMB,
		MaxBackups: loggingConfig.MaxBackups,
		MaxAge:     loggingConfig.MaxAgeDays,
		Compress:   true,
	}
	writer := io.MultiWriter(os.Stderr, file)
	slog.SetDefault(slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: logLevel})))
	return file
}

func setLogLevel(loggingConfig config.LoggingConfig) {
	if loggingConfig.DebugMode {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelInfo)
	}
}
