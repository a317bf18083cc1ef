// Package logging builds the slog loggers used across reelsync.
//
// It provides console and JSON handlers, standardized attribute helpers, and
// component-scoped child loggers so every subsystem reports under a stable
// "component" field.
package logging
