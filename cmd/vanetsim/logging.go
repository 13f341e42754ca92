package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/vanetlab/vanetsim/internal/config"
	"github.com/vanetlab/vanetsim/internal/logging"
	intOtel "github.com/vanetlab/vanetsim/internal/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// session holds the loggers and telemetry of one CLI invocation.
type session struct {
	start       time.Time
	logFilePath string
	logFile     *os.File

	slogManager *logging.SlogManager
	logger      *slog.Logger
	metricsLog  zerolog.Logger

	otelProvider *intOtel.Provider
	gelfWriter   *gelf.Writer
}

// newSession opens the session log file and sets up slog, zerolog, OTel and GELF.
// Telemetry that fails to start is logged and skipped.
func newSession(start time.Time) (*session, error) {
	s := &session{
		start:       start,
		slogManager: logging.NewSlogManager(),
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	s.logFilePath = logging.LogFilePath(logsDir, AppName, start)

	// keep the previous session's file if one has the same name
	if _, err := os.Stat(s.logFilePath); err == nil {
		os.Rename(s.logFilePath, s.logFilePath+".old")
	}

	logFile, err := os.OpenFile(s.logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	s.logFile = logFile

	level := config.GetString("logLevel")
	s.metricsLog = newZerolog(level, logFile)

	var setupErrs []error

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		s.otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      logFile,
			MetricWriter:   logFile,
			MetricInterval: otelCfg.MetricInterval,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			setupErrs = append(setupErrs, fmt.Errorf("otel: %w", err))
			s.otelProvider = nil
		}
	}

	var extra []slog.Handler
	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		handler, w, err := logging.NewGELFHandler(graylogCfg.Address, parseSlogLevel(level))
		if err != nil {
			setupErrs = append(setupErrs, fmt.Errorf("graylog: %w", err))
		} else {
			s.gelfWriter = w
			extra = append(extra, handler)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if s.otelProvider != nil {
		otelLogProvider = s.otelProvider.LoggerProvider()
	}
	s.slogManager.Setup(logFile, level, otelLogProvider, extra...)
	s.logger = s.slogManager.Logger()
	slog.SetDefault(s.logger)

	for _, err := range setupErrs {
		s.logger.Error("Failed to initialize telemetry", "error", err)
	}
	if s.otelProvider != nil {
		s.logger.Info("OTel provider initialized", "file", s.logFilePath, "endpoint", otelCfg.Endpoint)
	}
	if s.gelfWriter != nil {
		s.logger.Info("GELF logging enabled", "address", graylogCfg.Address)
	}
	s.logger.Info("Begin logging in logs directory", "path", s.logFilePath, "version", Version)
	return s, nil
}

func parseSlogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// newZerolog builds the logger of the metrics code: console format to stdout and
// the same format without colors to the log file.
func newZerolog(level string, file io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	mlw := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
		zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		},
	)
	return zerolog.New(mlw).Level(lvl).With().Timestamp().Str("component", "influx").Logger()
}

// flushTelemetry pushes pending OTel logs and metrics, e.g. after each run.
func (s *session) flushTelemetry(ctx context.Context) {
	if err := s.slogManager.Flush(ctx); err != nil {
		s.logger.Warn("Failed to flush OTel logs", "error", err)
	}
	if s.otelProvider != nil {
		if err := s.otelProvider.Flush(ctx); err != nil {
			s.logger.Warn("Failed to flush OTel provider", "error", err)
		}
	}
}

// Close shuts down telemetry and closes the log file.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if s.otelProvider != nil {
		errs = append(errs, s.otelProvider.Shutdown(ctx))
	}
	if s.gelfWriter != nil {
		errs = append(errs, s.gelfWriter.Close())
	}
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
	}
	return errors.Join(errs...)
}
