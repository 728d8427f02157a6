// SPDX-License-Identifier: Apache-2.0

package log

import "maps"

// Logger is the structured logger used across eventpipe. Implementations
// must be safe for concurrent use.
type Logger interface {
	Trace(msg string, fields ...Fields)
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(err error, msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	Panic(msg string, fields ...Fields)
	WithFields(fields Fields) Logger
}

type Fields map[string]any

// Common field names.
const (
	ModuleField      = "module"
	PartitionIDField = "partition_id"
	OffsetField      = "offset"
)

type NoopLogger struct{}

func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Trace(string, ...Fields)        {}
func (l *NoopLogger) Debug(string, ...Fields)        {}
func (l *NoopLogger) Info(string, ...Fields)         {}
func (l *NoopLogger) Warn(error, string, ...Fields)  {}
func (l *NoopLogger) Error(error, string, ...Fields) {}
func (l *NoopLogger) Panic(string, ...Fields)        {}

func (l *NoopLogger) WithFields(Fields) Logger {
	return l
}

// NewLogger will return the logger on input if not nil, or a noop logger
// otherwise.
func NewLogger(l Logger) Logger {
	if l == nil {
		return &NoopLogger{}
	}
	return l
}

// MergeFields returns a new set of fields with the contents of both inputs.
// Values in f2 win on conflict.
func MergeFields(f1, f2 Fields) Fields {
	merged := make(Fields, len(f1)+len(f2))
	maps.Copy(merged, f1)
	maps.Copy(merged, f2)
	return merged
}
