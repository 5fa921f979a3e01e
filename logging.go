package auth

import "github.com/goliatone/go-logger/glog"

// defaultLogger builds the structured logger used when callers wire nothing.
// glog loggers satisfy the Logger interface, and glog.ProviderFromLogger
// turns one into a LoggerProvider for scoped loggers.
func defaultLogger() glog.Logger {
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("auth"),
		glog.WithAddSource(false),
	).GetLogger("auth")
}
