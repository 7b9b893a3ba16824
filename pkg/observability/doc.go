/*
Package observability turns lifecycle hooks into Prometheus metrics and
structured audit logs.

Metrics are registered on a caller-supplied prometheus.Registerer so tests and
embedders can keep their own registry; the CLI uses the default one and serves
it on /metrics.
*/
package observability
