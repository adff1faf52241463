// Package logging configures log/slog for the ledger tools.
//
// Setup picks the console handler from the configured format: "text" uses
// ColorHandler, a terminal friendly handler printing
//
//	15:04:05 INF applied component=migrate from=1 to=2
//
// and "json" uses slog's JSON handler. When a log file is configured every
// record is also written as JSON to a lumberjack rotated file. The resulting
// logger becomes the slog default, so packages log through
// slog.Default().With("component", name).
package logging
