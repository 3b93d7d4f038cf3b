// Package metrics exposes Prometheus metrics for the simulator.
//
// A *Metrics owns its own prometheus.Registry, so several simulators can run
// in one process (tests do this) without colliding on the default registry.
// Every recorder method is safe to call on a nil *Metrics, which is how
// metrics are disabled.
//
// # Metrics
//
//   - simulator_setups_total: setups by protocol and result (ok, error)
//   - simulator_executions_total: executions by protocol and result
//     (match, no_match, error)
//   - simulator_execution_duration_seconds: execution latency by protocol,
//     including any configured response delay
//   - simulator_registered_tests: records currently registered, by protocol
//   - simulator_socket_sessions: open socket sessions
//
// The Go runtime and process collectors are registered as well.
//
// # Label Conventions
//
// protocol is one of rest, ws, socket. All label values are lowercase.
//
// # Usage
//
//	m := metrics.New()
//	m.Execution(metrics.ProtocolREST, metrics.ResultMatch, time.Since(start))
//	http.Handle("/metrics", m.Handler())
package metrics
