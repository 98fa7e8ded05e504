/*
Package observability exposes Prometheus metrics for trees and runners.

Metrics are fed through domain.LifecycleHooks, so the tick path only pays for
the counters it actually increments. Register a Metrics on any
prometheus.Registerer and serve it with promhttp.
*/
package observability
