// Package metrics defines the Prometheus collectors for the relay and the
// sync engine, and the gin middleware that feeds the REST ones.
package metrics
