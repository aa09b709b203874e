// Package logging provides a minimal logging interface and adapters for researchflow.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the invoker, loops and orchestrators use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - RunLogger adding run / component attributes and workflow helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	rf := researchflow.New(func(o *researchflow.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
