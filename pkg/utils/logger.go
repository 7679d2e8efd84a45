package utils

import "go.uber.org/zap"

// NewLogger builds the process logger. Debug selects the development
// config (console output, debug level); otherwise the production config
// is used (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewProductionLogger always builds a production-config logger.
func NewProductionLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}
