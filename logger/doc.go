// Package logger provides structured logging capabilities.
//
// The logger package builds the zap logger shared by every reqbox
// component, including the console output forwarded from pre-request
// scripts.
//
// Usage:
//
//	logger, err := logger.New("production", "info")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("reqbox started")
//	logger.Error("request failed", zap.Error(err))
package logger
