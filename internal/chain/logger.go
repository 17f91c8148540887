package chain

// Logger is the logging surface strategies write diagnostics to.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, ...any) {}
