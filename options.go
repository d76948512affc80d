package ragfile

import (
	"encoding/binary"
	"log/slog"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	byteOrder        binary.ByteOrder
}

// Option configures writers and readers.
type Option func(*options)

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		byteOrder:        binary.LittleEndian,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := ragfile.NewJSONLogger(slog.LevelInfo)
//	w := ragfile.NewWriter("kb.ragfile", ragfile.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &ragfile.BasicMetricsCollector{}
//	r, _ := ragfile.Open("kb.ragfile", ragfile.WithMetricsCollector(metrics))
//	// ... search ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithByteOrder sets the byte order a Writer encodes integers and vectors in.
// The choice is stamped into the header, so readers on any host decode the
// file correctly. Defaults to little endian. Readers ignore this option.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		if order != nil {
			o.byteOrder = order
		}
	}
}
