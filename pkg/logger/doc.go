// Package logger builds configured log/slog loggers and provides typed
// attribute helpers used across the notification service.
//
// The default configuration is production-safe (JSON output, INFO level):
//
//	log := logger.New(logger.WithService("notification-service"))
//	log.Info("notification sent", logger.NotificationID(id))
//
// Development setups usually want text output and debug level:
//
//	log := logger.New(logger.WithDevelopment("notification-service"))
package logger
