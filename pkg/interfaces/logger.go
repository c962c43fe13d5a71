package interfaces

import "context"

// Logger is the leveled, key/value logger every package receives. Its method
// set matches github.com/goliatone/go-logger, so a glog logger drops in
// through a thin adapter.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider returns loggers by dotted module name (excalidraw.bridge,
// excalidraw.render). Providers may ignore the name.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers that can bind fields to every
// subsequent entry.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}
