// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics, logging setup and debug introspection for
// hioload-xio transports and the binaries that compose them.
//
// Provides:
//   - ClientConfig loading through viper (YAML file + XIO_* env overrides)
//   - zap logger construction with lumberjack file rotation
//   - MetricsRegistry counters scoped per transport instance
//   - DebugProbes for state export
//
// Platform probes are build-tag-partitioned.
package control
