// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, plus a human-readable format for the console.
// Loggers travel in the context so transaction-scoped attributes reach every
// statement a transaction runs.
package logger
