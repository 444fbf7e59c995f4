// Package logging centralizes slog construction for the CLI, the HTTP
// surface, and the pipeline, plus small attr helpers shared across packages.
package logging
