package alphabot

import (
	"os"
	"strconv"

	"github.com/raykavin/alphabot/pkg/logger"
	"github.com/raykavin/alphabot/pkg/logger/logrus"
	"github.com/raykavin/alphabot/pkg/logger/zerolog"
)

const (
	// Default configuration values
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
	defaultLogBackend    = "zerolog"
)

// Environment variable names
const (
	envLogLevel      = "ALPHABOT_LOG_LEVEL"
	envLogTimeFormat = "ALPHABOT_LOG_TIME_FORMAT"
	envLogColor      = "ALPHABOT_LOG_COLOR"
	envLogJSON       = "ALPHABOT_LOG_JSON"
	envLogBackend    = "ALPHABOT_LOG_BACKEND"
)

func init() {
	// Initialize the logger with configuration from environment variables
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = log
}

// initLogger creates a new logger instance configured from environment variables
func initLogger() (logger.Logger, error) {
	logLevel := getEnvWithDefault(envLogLevel, defaultLogLevel)
	logTimeFormat := getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat)

	logColored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}

	logJSON, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	if getEnvWithDefault(envLogBackend, defaultLogBackend) == "logrus" {
		log, err := logrus.New(os.Stdout, logLevel, logJSON)
		if err != nil {
			return nil, err
		}
		return log, nil
	}

	log, err := zerolog.New(logLevel, logTimeFormat, logColored, logJSON)
	if err != nil {
		return nil, err
	}
	return zerolog.NewAdapter(log), nil
}

// getEnvWithDefault returns the value of the environment variable or the default if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBoolEnv gets a boolean environment variable with a default value
func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}
