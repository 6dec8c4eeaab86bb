package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/crnow/pkg/shared/config"
)

// NewLogger creates a new hclog.Logger instance based on the YAML configuration and the provided name.
// Logs go to stderr so that reports printed to stdout stay machine readable.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	return newLogger(cfg, name, os.Stderr)
}

func newLogger(cfg *config.Config, name string, output io.Writer) hclog.Logger {
	var loggerCfg *config.Logger
	if cfg != nil {
		loggerCfg = &cfg.Logger
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		DisableTime:     config.GetBoolValue(loggerCfg, "DisableTime", true),
		JSONFormat:      config.GetBoolValue(loggerCfg, "JSONFormat", false),
		IncludeLocation: config.GetBoolValue(loggerCfg, "IncludeLocation", false),
		Output:          output,
		Level:           determineLogLevel(loggerCfg),
	})
}

// GetLoggerOutput returns a writer that forwards lines to the logger at debug level.
func GetLoggerOutput(logger hclog.Logger) io.Writer {
	return logger.StandardWriter(&hclog.StandardLoggerOptions{
		InferLevels: true,
		ForceLevel:  hclog.Debug,
	})
}

// determineLogLevel returns a log level determined first by an environment variable, and if not set, by the provided configuration.
// If neither configuration nor environment variable specifies a log level, it defaults to INFO.
func determineLogLevel(cfg *config.Logger) hclog.Level {
	if logLevelEnv := os.Getenv("CRNOW_LOG_LEVEL"); logLevelEnv != "" {
		return parseLogLevel(strings.ToUpper(logLevelEnv))
	}
	if cfg == nil || cfg.Level == "" {
		return hclog.Info
	}
	return parseLogLevel(strings.ToUpper(cfg.Level))
}

// parseLogLevel converts a string level to hclog.Level.
func parseLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
