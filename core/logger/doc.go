// Package logger is a standardized event logging framework for the shell.
//
// Events are written as newline delimited JSON objects, one per line, and can
// be aggregated into a Report.
package logger
