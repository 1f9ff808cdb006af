// Package logger builds the structured loggers the shell writes with and
// reads back the JSON event logs they produce.
package logger
