// Package gferr defines the two error classes the engine raises: mistakes a
// caller can recover from (ConfigurationError) and invariant breaks that
// abort the offending goroutine outright (ProtocolViolation).
package gferr

import "fmt"

// ConfigurationError reports a problem discovered while wiring a graph:
// dangling edges, zero decomposition rules, duplicate addresses, and the
// like. Validate-style checks return it; mistakes detected inside a
// constructor are panicked with it through AbortConfig.
type ConfigurationError struct {
	Component string
	Msg       string
}

func (e *ConfigurationError) Error() string {
	if e.Component == "" {
		return "configuration error: " + e.Msg
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Component, e.Msg)
}

// Configf builds a *ConfigurationError with a formatted message.
func Configf(component, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Component: component, Msg: fmt.Sprintf(format, args...)}
}

// ProtocolViolation marks a broken runtime invariant: producing past
// termination, releasing memory twice, incrementing a producer count after
// wiring has been frozen. These are programmer errors, not recoverable
// conditions, so the only caller is Abort.
type ProtocolViolation struct {
	Component string
	Msg       string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation in %s: %s", e.Component, e.Msg)
}

// Abort panics with a *ProtocolViolation. The goroutine that calls it does
// not return; nothing in the engine recovers the panic, so it crashes the
// process.
func Abort(component, format string, args ...any) {
	panic(&ProtocolViolation{Component: component, Msg: fmt.Sprintf(format, args...)})
}

// AbortConfig panics with a *ConfigurationError. Used for mistakes detected
// at initialization time (a missing decomposition rule, a zero-capacity
// pool) that §7 classifies as fatal but which are caller errors rather than
// broken runtime invariants.
func AbortConfig(component, format string, args ...any) {
	panic(Configf(component, format, args...))
}
